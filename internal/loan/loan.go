// Package loan records book loans and keeps every book's availability flag
// in step with them: a book is unavailable exactly while one of its loans
// has no return date.
package loan

import (
	"time"

	"libraryapi/internal/apperr"
)

var (
	ErrNotFound         = apperr.NotFound("transaction not found")
	ErrBookNotFound     = apperr.NotFound("book not found")
	ErrCustomerNotFound = apperr.NotFound("customer not found")
	ErrBookUnavailable  = apperr.Conflict("book is not available")
	ErrAlreadyReturned  = apperr.Conflict("book already returned")
)

// Loan is one lending transaction. A nil ReturnedDate means the loan is open.
type Loan struct {
	ID           int64
	BookID       int64
	CustomerID   int64
	BorrowedDate time.Time
	ReturnedDate *time.Time
}

func (l Loan) IsOpen() bool {
	return l.ReturnedDate == nil
}

// Book is the slice of a catalog row the ledger needs.
type Book struct {
	ID        int64
	Title     string
	Available bool
}

type CreateInput struct {
	BookID       int64
	CustomerID   int64
	BorrowedDate time.Time
	ReturnedDate *time.Time
}

type UpdateInput struct {
	BookID       int64
	CustomerID   int64
	BorrowedDate time.Time
	ReturnedDate *time.Time
}

func (in UpdateInput) apply(id int64) Loan {
	return Loan{
		ID:           id,
		BookID:       in.BookID,
		CustomerID:   in.CustomerID,
		BorrowedDate: in.BorrowedDate,
		ReturnedDate: in.ReturnedDate,
	}
}

// Status filters listings by open or returned loans.
type Status string

const (
	StatusAny      Status = ""
	StatusOpen     Status = "open"
	StatusReturned Status = "returned"
)

// Query defines filters and pagination for listing loans.
type Query struct {
	BookID     int64
	CustomerID int64
	Status     Status
	Limit      int
	Offset     int
}

// Record is a loan joined with its book title and customer name.
type Record struct {
	ID           int64   `json:"transaction_id"`
	BookID       int64   `json:"book_id"`
	BookTitle    string  `json:"book_title"`
	CustomerID   int64   `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	DateBorrowed string  `json:"date_borrowed"`
	DateReturned *string `json:"date_returned"`
}
