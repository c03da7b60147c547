package loan

import (
	"context"
)

// Store is the ledger as seen from inside one database transaction.
// GetBook and GetLoan lock the rows they return until the transaction ends.
type Store interface {
	GetBook(ctx context.Context, id int64) (Book, error)
	SetBookAvailability(ctx context.Context, id int64, available bool) error
	GetLoan(ctx context.Context, id int64) (Loan, error)
	InsertLoan(ctx context.Context, l Loan) (int64, error)
	UpdateLoan(ctx context.Context, l Loan) error
	DeleteLoan(ctx context.Context, id int64) error
}

// Repository defines the contract for loan data storage.
type Repository interface {
	// WithinTx runs fn in a transaction that commits only if fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, st Store) error) error
	List(ctx context.Context, q Query) ([]Record, int, error)
	GetByID(ctx context.Context, id int64) (Record, error)
}

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
