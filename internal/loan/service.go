package loan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"libraryapi/internal/apperr"
	"libraryapi/internal/platform/date"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opReturn = "return"
)

// Service applies loan changes and the matching availability changes in one
// transaction per call.
type Service struct {
	repo   Repository
	now    func() time.Time
	logger Logger
}

type Option func(*Service)

// WithClock sets the clock used to date returns.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithLogger(logger Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new loan service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLoan records a loan and returns its id. An open loan requires the
// book to be available and marks it unavailable. A loan created already
// returned is a historical record and leaves the book untouched.
func (s *Service) CreateLoan(ctx context.Context, in CreateInput) (int64, error) {
	if err := checkDates(in.BorrowedDate, in.ReturnedDate); err != nil {
		return 0, err
	}

	var id int64
	err := s.run(ctx, opCreate, &id, func(ctx context.Context, st Store) error {
		book, err := st.GetBook(ctx, in.BookID)
		if err != nil {
			return err
		}
		l := Loan{
			BookID:       in.BookID,
			CustomerID:   in.CustomerID,
			BorrowedDate: in.BorrowedDate,
			ReturnedDate: in.ReturnedDate,
		}
		if l.IsOpen() && !book.Available {
			return ErrBookUnavailable
		}

		id, err = st.InsertLoan(ctx, l)
		if err != nil {
			return err
		}
		if l.IsOpen() {
			return st.SetBookAvailability(ctx, l.BookID, false)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateLoan overwrites a loan and reconciles the availability of the book
// it held and the book it now holds. Moving a loan onto a book, or reopening
// it, requires that book to be available.
func (s *Service) UpdateLoan(ctx context.Context, id int64, in UpdateInput) error {
	if err := checkDates(in.BorrowedDate, in.ReturnedDate); err != nil {
		return err
	}

	return s.run(ctx, opUpdate, &id, func(ctx context.Context, st Store) error {
		orig, err := st.GetLoan(ctx, id)
		if err != nil {
			return err
		}
		next := in.apply(id)
		changes := planEdit(orig, next)

		ids := []int64{next.BookID}
		for _, c := range changes {
			ids = append(ids, c.bookID)
		}
		books, err := lockBooks(ctx, st, ids)
		if err != nil {
			return err
		}
		for _, c := range changes {
			if c.effect == effectHold && !books[c.bookID].Available {
				return ErrBookUnavailable
			}
		}

		if err := st.UpdateLoan(ctx, next); err != nil {
			return err
		}
		for _, c := range changes {
			if err := st.SetBookAvailability(ctx, c.bookID, c.available()); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteLoan removes a loan, freeing its book if the loan was open.
func (s *Service) DeleteLoan(ctx context.Context, id int64) error {
	return s.run(ctx, opDelete, &id, func(ctx context.Context, st Store) error {
		l, err := st.GetLoan(ctx, id)
		if err != nil {
			return err
		}
		if l.IsOpen() {
			if err := st.SetBookAvailability(ctx, l.BookID, true); err != nil {
				return err
			}
		}
		return st.DeleteLoan(ctx, id)
	})
}

// ReturnLoan closes an open loan as of today and frees its book.
func (s *Service) ReturnLoan(ctx context.Context, id int64) error {
	return s.run(ctx, opReturn, &id, func(ctx context.Context, st Store) error {
		l, err := st.GetLoan(ctx, id)
		if err != nil {
			return err
		}
		if !l.IsOpen() {
			return ErrAlreadyReturned
		}

		today := date.Of(s.now())
		if today.Before(l.BorrowedDate) {
			// loans may be recorded ahead of the clock
			today = l.BorrowedDate
		}
		l.ReturnedDate = &today
		if err := st.UpdateLoan(ctx, l); err != nil {
			return err
		}
		return st.SetBookAvailability(ctx, l.BookID, true)
	})
}

// List returns loans matching the query with their total count.
func (s *Service) List(ctx context.Context, q Query) ([]Record, int, error) {
	return s.repo.List(ctx, q)
}

// Get returns a single loan.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) run(ctx context.Context, op string, id *int64, fn func(ctx context.Context, st Store) error) error {
	start := time.Now()
	err := s.repo.WithinTx(ctx, fn)
	observe(op, err, time.Since(start))

	switch {
	case err == nil:
		s.logger.Info("loan "+op+" committed", "operation", op, "transaction_id", *id)
		return nil
	case apperr.IsDomain(err):
		s.logger.Warn("loan "+op+" rejected", "operation", op, "transaction_id", *id, "error", err)
		return err
	default:
		s.logger.Error("loan "+op+" failed", "operation", op, "transaction_id", *id, "error", err)
		return fmt.Errorf("%s loan: %w", op, err)
	}
}

// lockBooks reads and locks the given books in ascending id order.
func lockBooks(ctx context.Context, st Store, ids []int64) (map[int64]Book, error) {
	books := make(map[int64]Book, len(ids))
	for _, id := range lockOrder(ids...) {
		b, err := st.GetBook(ctx, id)
		if err != nil {
			return nil, err
		}
		books[id] = b
	}
	return books, nil
}

func checkDates(borrowed time.Time, returned *time.Time) error {
	if borrowed.IsZero() {
		return apperr.Validation("date_borrowed is required")
	}
	if returned != nil && returned.Before(borrowed) {
		return apperr.Validation("date_returned must not be before date_borrowed")
	}
	return nil
}
