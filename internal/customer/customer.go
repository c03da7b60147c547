package customer

import "libraryapi/internal/apperr"

var (
	ErrNotFound = apperr.NotFound("customer not found")
	ErrInUse    = apperr.Conflict("customer has transactions")
)

type Customer struct {
	ID        int64  `json:"customer_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Query defines filters and pagination for listing customers.
type Query struct {
	Name   string
	Limit  int
	Offset int
}
