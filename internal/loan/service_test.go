package loan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"libraryapi/internal/apperr"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jan1  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan5  = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	jan10 = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	repo.addBook(1, "Dune")
	repo.addBook(2, "Emma")
	repo.addBook(3, "Ulysses")
	repo.addCustomer(1, "Ada Lovelace")
	repo.addCustomer(2, "Alan Turing")
	svc := NewService(repo, WithLogger(quietLogger()), WithClock(fixedClock(time.Date(2024, 2, 3, 15, 4, 5, 0, time.UTC))))
	t.Cleanup(func() {
		assert.Empty(t, repo.inconsistentBooks(), "availability out of step with open loans")
	})
	return svc, repo
}

func ptr(t time.Time) *time.Time { return &t }

func TestService_CreateLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("open loan holds the book", func(t *testing.T) {
		svc, repo := newTestService(t)

		id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		assert.False(t, repo.available(1))
	})

	t.Run("unavailable book is rejected", func(t *testing.T) {
		svc, repo := newTestService(t)
		_, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		require.NoError(t, err)

		_, err = svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 2, BorrowedDate: jan5})
		assert.ErrorIs(t, err, ErrBookUnavailable)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.False(t, repo.available(1))
		_, exists := repo.loan(2)
		assert.False(t, exists)
	})

	t.Run("returned loan leaves the book alone", func(t *testing.T) {
		svc, repo := newTestService(t)

		_, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1, ReturnedDate: ptr(jan5)})
		require.NoError(t, err)
		assert.True(t, repo.available(1))
	})

	t.Run("returned loan on a lent book is allowed", func(t *testing.T) {
		svc, repo := newTestService(t)
		_, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan5})
		require.NoError(t, err)

		_, err = svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 2, BorrowedDate: jan1, ReturnedDate: ptr(jan1)})
		require.NoError(t, err)
		assert.False(t, repo.available(1))
	})

	t.Run("missing book", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.CreateLoan(ctx, CreateInput{BookID: 99, CustomerID: 1, BorrowedDate: jan1})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("missing customer rolls back", func(t *testing.T) {
		svc, repo := newTestService(t)

		_, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 99, BorrowedDate: jan1})
		assert.ErrorIs(t, err, ErrCustomerNotFound)
		assert.True(t, repo.available(1))
	})

	t.Run("return before borrow is invalid", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan5, ReturnedDate: ptr(jan1)})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestService_ReturnLoan(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
	require.NoError(t, err)

	require.NoError(t, svc.ReturnLoan(ctx, id))
	assert.True(t, repo.available(1))
	l, _ := repo.loan(id)
	require.NotNil(t, l.ReturnedDate)
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), *l.ReturnedDate)

	err = svc.ReturnLoan(ctx, id)
	assert.ErrorIs(t, err, ErrAlreadyReturned)
	l2, _ := repo.loan(id)
	assert.Equal(t, l, l2)

	assert.ErrorIs(t, svc.ReturnLoan(ctx, 42), ErrNotFound)
}

func TestService_DeleteLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("open loan frees the book", func(t *testing.T) {
		svc, repo := newTestService(t)
		id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteLoan(ctx, id))
		assert.True(t, repo.available(1))
		_, exists := repo.loan(id)
		assert.False(t, exists)
	})

	t.Run("closed loan leaves the book alone", func(t *testing.T) {
		svc, repo := newTestService(t)
		closedID, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1, ReturnedDate: ptr(jan5)})
		require.NoError(t, err)
		_, err = svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 2, BorrowedDate: jan10})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteLoan(ctx, closedID))
		assert.False(t, repo.available(1))
	})

	t.Run("missing loan", func(t *testing.T) {
		svc, _ := newTestService(t)
		assert.ErrorIs(t, svc.DeleteLoan(ctx, 7), ErrNotFound)
	})
}

func TestService_UpdateLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("setting and clearing the return date", func(t *testing.T) {
		svc, repo := newTestService(t)
		id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		require.NoError(t, err)

		require.NoError(t, svc.UpdateLoan(ctx, id, UpdateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1, ReturnedDate: ptr(jan10)}))
		assert.True(t, repo.available(1))

		require.NoError(t, svc.UpdateLoan(ctx, id, UpdateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1}))
		assert.False(t, repo.available(1))
	})

	t.Run("moving an open loan", func(t *testing.T) {
		svc, repo := newTestService(t)
		id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		require.NoError(t, err)

		require.NoError(t, svc.UpdateLoan(ctx, id, UpdateInput{BookID: 2, CustomerID: 1, BorrowedDate: jan1}))
		assert.True(t, repo.available(1))
		assert.False(t, repo.available(2))
	})

	t.Run("moving an open loan and returning it", func(t *testing.T) {
		svc, repo := newTestService(t)
		id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		require.NoError(t, err)

		require.NoError(t, svc.UpdateLoan(ctx, id, UpdateInput{BookID: 2, CustomerID: 1, BorrowedDate: jan1, ReturnedDate: ptr(jan5)}))
		assert.True(t, repo.available(1))
		assert.True(t, repo.available(2))
	})

	t.Run("moving a closed loan onto a lent book", func(t *testing.T) {
		svc, repo := newTestService(t)
		_, err := svc.CreateLoan(ctx, CreateInput{BookID: 2, CustomerID: 2, BorrowedDate: jan1})
		require.NoError(t, err)
		id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1, ReturnedDate: ptr(jan5)})
		require.NoError(t, err)

		require.NoError(t, svc.UpdateLoan(ctx, id, UpdateInput{BookID: 2, CustomerID: 1, BorrowedDate: jan1, ReturnedDate: ptr(jan5)}))
		assert.True(t, repo.available(1))
		assert.False(t, repo.available(2))
	})

	t.Run("moving onto a lent book is rejected", func(t *testing.T) {
		svc, repo := newTestService(t)
		_, err := svc.CreateLoan(ctx, CreateInput{BookID: 2, CustomerID: 2, BorrowedDate: jan1})
		require.NoError(t, err)
		id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		require.NoError(t, err)

		err = svc.UpdateLoan(ctx, id, UpdateInput{BookID: 2, CustomerID: 1, BorrowedDate: jan1})
		assert.ErrorIs(t, err, ErrBookUnavailable)
		assert.False(t, repo.available(1))
		l, _ := repo.loan(id)
		assert.Equal(t, int64(1), l.BookID)
	})

	t.Run("reopening while another loan holds the book is rejected", func(t *testing.T) {
		svc, repo := newTestService(t)
		id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1, ReturnedDate: ptr(jan5)})
		require.NoError(t, err)
		_, err = svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 2, BorrowedDate: jan10})
		require.NoError(t, err)

		err = svc.UpdateLoan(ctx, id, UpdateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		assert.ErrorIs(t, err, ErrBookUnavailable)
		assert.False(t, repo.available(1))
	})

	t.Run("missing loan", func(t *testing.T) {
		svc, _ := newTestService(t)
		err := svc.UpdateLoan(ctx, 5, UpdateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing new book", func(t *testing.T) {
		svc, repo := newTestService(t)
		id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		require.NoError(t, err)

		err = svc.UpdateLoan(ctx, id, UpdateInput{BookID: 99, CustomerID: 1, BorrowedDate: jan1})
		assert.ErrorIs(t, err, ErrBookNotFound)
		assert.False(t, repo.available(1))
	})

	t.Run("missing customer rolls back", func(t *testing.T) {
		svc, repo := newTestService(t)
		id, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
		require.NoError(t, err)

		err = svc.UpdateLoan(ctx, id, UpdateInput{BookID: 2, CustomerID: 99, BorrowedDate: jan1})
		assert.ErrorIs(t, err, ErrCustomerNotFound)
		assert.False(t, repo.available(1))
		assert.True(t, repo.available(2))
	})
}

func TestService_LendReturnDeleteScenario(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	loan1, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
	require.NoError(t, err)
	assert.False(t, repo.available(1))

	_, err = svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 2, BorrowedDate: jan5})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, svc.ReturnLoan(ctx, loan1))
	assert.True(t, repo.available(1))

	require.NoError(t, svc.DeleteLoan(ctx, loan1))
	assert.True(t, repo.available(1))
}

func TestService_ConcurrentCreateLendsOnce(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(customer int64) {
			defer wg.Done()
			_, err := svc.CreateLoan(ctx, CreateInput{BookID: 3, CustomerID: customer, BorrowedDate: jan1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrBookUnavailable):
				conflicts++
			}
		}(int64(i%2 + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
	assert.False(t, repo.available(3))
}

func TestService_ListAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	open, err := svc.CreateLoan(ctx, CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
	require.NoError(t, err)
	closed, err := svc.CreateLoan(ctx, CreateInput{BookID: 2, CustomerID: 2, BorrowedDate: jan1, ReturnedDate: ptr(jan5)})
	require.NoError(t, err)

	records, total, err := svc.List(ctx, Query{Status: StatusOpen})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, open, records[0].ID)
	assert.Nil(t, records[0].DateReturned)

	rec, err := svc.Get(ctx, closed)
	require.NoError(t, err)
	assert.Equal(t, "Emma", rec.BookTitle)
	assert.Equal(t, "Alan Turing", rec.CustomerName)
	require.NotNil(t, rec.DateReturned)
	assert.Equal(t, "2024-01-05", *rec.DateReturned)

	_, err = svc.Get(ctx, 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

// The remaining tests pin down the exact calls made inside the transaction.

func runTx(st Store) func(ctx context.Context, fn func(context.Context, Store) error) error {
	return func(ctx context.Context, fn func(context.Context, Store) error) error {
		return fn(ctx, st)
	}
}

func TestService_UpdateLoan_LocksBooksInOrderBeforeWriting(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	mockStore := NewMockStore(ctrl)
	svc := NewService(mockRepo, WithLogger(quietLogger()))

	orig := Loan{ID: 4, BookID: 9, CustomerID: 1, BorrowedDate: jan1}
	next := Loan{ID: 4, BookID: 2, CustomerID: 1, BorrowedDate: jan1}

	mockRepo.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(mockStore))
	gomock.InOrder(
		mockStore.EXPECT().GetLoan(gomock.Any(), int64(4)).Return(orig, nil),
		mockStore.EXPECT().GetBook(gomock.Any(), int64(2)).Return(Book{ID: 2, Available: true}, nil),
		mockStore.EXPECT().GetBook(gomock.Any(), int64(9)).Return(Book{ID: 9, Available: false}, nil),
		mockStore.EXPECT().UpdateLoan(gomock.Any(), next).Return(nil),
		mockStore.EXPECT().SetBookAvailability(gomock.Any(), int64(9), true).Return(nil),
		mockStore.EXPECT().SetBookAvailability(gomock.Any(), int64(2), false).Return(nil),
	)

	err := svc.UpdateLoan(context.Background(), 4, UpdateInput{BookID: 2, CustomerID: 1, BorrowedDate: jan1})
	assert.NoError(t, err)
}

func TestService_CreateLoan_ConflictWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	mockStore := NewMockStore(ctrl)
	svc := NewService(mockRepo, WithLogger(quietLogger()))

	mockRepo.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(mockStore))
	mockStore.EXPECT().GetBook(gomock.Any(), int64(1)).Return(Book{ID: 1, Available: false}, nil)

	_, err := svc.CreateLoan(context.Background(), CreateInput{BookID: 1, CustomerID: 1, BorrowedDate: jan1})
	assert.ErrorIs(t, err, ErrBookUnavailable)
}

func TestService_StorageFailureIsWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	mockStore := NewMockStore(ctrl)
	svc := NewService(mockRepo, WithLogger(quietLogger()))

	dbErr := errors.New("connection reset")
	mockRepo.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx(mockStore))
	mockStore.EXPECT().GetLoan(gomock.Any(), int64(3)).Return(Loan{ID: 3, BookID: 1, BorrowedDate: jan1}, nil)
	mockStore.EXPECT().UpdateLoan(gomock.Any(), gomock.Any()).Return(nil)
	mockStore.EXPECT().SetBookAvailability(gomock.Any(), int64(1), true).Return(dbErr)

	err := svc.ReturnLoan(context.Background(), 3)
	assert.ErrorIs(t, err, dbErr)
	assert.False(t, apperr.IsDomain(err))
	assert.Equal(t, "return loan: connection reset", err.Error())
}

func TestService_CommitFailureIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	svc := NewService(mockRepo, WithLogger(quietLogger()))

	mockRepo.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(errors.New("commit tx: serialization failure"))

	err := svc.DeleteLoan(context.Background(), 8)
	assert.EqualError(t, err, "delete loan: commit tx: serialization failure")
}
