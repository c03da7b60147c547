// Package apperr defines the error kinds shared by the domain packages.
//
// A domain error is an *Error carrying a human readable message and one of
// the kind sentinels below. Callers test the kind with errors.Is; anything
// that matches none of them is treated as an internal failure.
package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// Error is a domain error of a given kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// NotFound reports a missing book, author, customer or transaction.
func NotFound(msg string) *Error {
	return &Error{kind: ErrNotFound, msg: msg}
}

// Conflict reports a business rule violation such as lending a book that is out.
func Conflict(msg string) *Error {
	return &Error{kind: ErrConflict, msg: msg}
}

// Validation reports malformed input that slipped past request decoding.
func Validation(msg string) *Error {
	return &Error{kind: ErrValidation, msg: msg}
}

// IsDomain reports whether err carries one of the known kinds.
func IsDomain(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrValidation)
}
