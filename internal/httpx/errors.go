package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"libraryapi/internal/apperr"
)

// WriteError maps a domain error to its HTTP status. Conflicts are reported
// as 400 like any other rejected request; unknown errors become a 500 that
// does not leak storage details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		JSONError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, apperr.ErrConflict):
		JSONError(w, r, http.StatusBadRequest, "CONFLICT", err.Error(), nil)
	case errors.Is(err, apperr.ErrValidation):
		JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFrom(r),
			"error", err,
		)
		JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

// BadRequestBody is written when the JSON body cannot be decoded.
func BadRequestBody(w http.ResponseWriter, r *http.Request) {
	JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
}

// InvalidInput is written when struct validation reports field errors.
func InvalidInput(w http.ResponseWriter, r *http.Request, details []ErrorDetail) {
	JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
}
