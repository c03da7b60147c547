package loan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libraryapi/internal/platform/date"
	"libraryapi/internal/platform/postgres"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	customerFK = "transactions_customer_id_fkey"
	bookFK     = "transactions_book_id_fkey"
)

var dialect = goqu.Dialect("postgres")

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(timeoutCtx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(timeoutCtx)

	if err := fn(timeoutCtx, &txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(timeoutCtx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Record, int, error) {
	dataSQL, dataArgs, countSQL, countArgs, err := listSQL(q)
	if err != nil {
		return nil, 0, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(timeoutCtx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(timeoutCtx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Record, error) {
	query, args, err := recordColumns(recordsFrom()).
		Where(goqu.I("t.transaction_id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Record{}, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rec, err := scanRecord(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func recordsFrom() *goqu.SelectDataset {
	return dialect.From(goqu.T("transactions").As("t")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.book_id").Eq(goqu.I("t.book_id")))).
		Join(goqu.T("customers").As("c"), goqu.On(goqu.I("c.customer_id").Eq(goqu.I("t.customer_id"))))
}

func recordColumns(ds *goqu.SelectDataset) *goqu.SelectDataset {
	return ds.Select(
		goqu.I("t.transaction_id"),
		goqu.I("t.book_id"),
		goqu.I("b.title"),
		goqu.I("t.customer_id"),
		goqu.L("c.first_name || ' ' || c.last_name").As("customer_name"),
		goqu.I("t.date_borrowed"),
		goqu.I("t.date_returned"),
	)
}

func listFilters(q Query) []goqu.Expression {
	var where []goqu.Expression
	if q.BookID > 0 {
		where = append(where, goqu.I("t.book_id").Eq(q.BookID))
	}
	if q.CustomerID > 0 {
		where = append(where, goqu.I("t.customer_id").Eq(q.CustomerID))
	}
	switch q.Status {
	case StatusOpen:
		where = append(where, goqu.I("t.date_returned").IsNull())
	case StatusReturned:
		where = append(where, goqu.I("t.date_returned").IsNotNull())
	}
	return where
}

func listSQL(q Query) (dataSQL string, dataArgs []any, countSQL string, countArgs []any, err error) {
	where := listFilters(q)

	countSQL, countArgs, err = recordsFrom().
		Select(goqu.COUNT("*")).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("build count query: %w", err)
	}

	ds := recordColumns(recordsFrom()).
		Where(where...).
		Order(goqu.I("t.date_borrowed").Desc(), goqu.I("t.transaction_id").Desc())
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}
	if q.Offset > 0 {
		ds = ds.Offset(uint(q.Offset))
	}
	dataSQL, dataArgs, err = ds.Prepared(true).ToSQL()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("build list query: %w", err)
	}
	return dataSQL, dataArgs, countSQL, countArgs, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec      Record
		borrowed time.Time
		returned *time.Time
	)
	if err := row.Scan(&rec.ID, &rec.BookID, &rec.BookTitle, &rec.CustomerID, &rec.CustomerName, &borrowed, &returned); err != nil {
		return Record{}, err
	}
	rec.DateBorrowed = date.Format(borrowed)
	rec.DateReturned = date.FormatOptional(returned)
	return rec, nil
}

// txStore implements Store on one open transaction.
type txStore struct {
	tx pgx.Tx
}

func (s *txStore) GetBook(ctx context.Context, id int64) (Book, error) {
	const query = `
		SELECT book_id, title, availability
		FROM books
		WHERE book_id = $1
		FOR UPDATE
	`
	var b Book
	err := s.tx.QueryRow(ctx, query, id).Scan(&b.ID, &b.Title, &b.Available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrBookNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (s *txStore) SetBookAvailability(ctx context.Context, id int64, available bool) error {
	tag, err := s.tx.Exec(ctx, `UPDATE books SET availability = $2 WHERE book_id = $1`, id, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (s *txStore) GetLoan(ctx context.Context, id int64) (Loan, error) {
	const query = `
		SELECT transaction_id, book_id, customer_id, date_borrowed, date_returned
		FROM transactions
		WHERE transaction_id = $1
		FOR UPDATE
	`
	var l Loan
	err := s.tx.QueryRow(ctx, query, id).Scan(&l.ID, &l.BookID, &l.CustomerID, &l.BorrowedDate, &l.ReturnedDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Loan{}, ErrNotFound
		}
		return Loan{}, err
	}
	return l, nil
}

func (s *txStore) InsertLoan(ctx context.Context, l Loan) (int64, error) {
	const query = `
		INSERT INTO transactions (book_id, customer_id, date_borrowed, date_returned)
		VALUES ($1, $2, $3, $4)
		RETURNING transaction_id
	`
	var id int64
	err := s.tx.QueryRow(ctx, query, l.BookID, l.CustomerID, l.BorrowedDate, l.ReturnedDate).Scan(&id)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return id, nil
}

func (s *txStore) UpdateLoan(ctx context.Context, l Loan) error {
	const query = `
		UPDATE transactions
		SET book_id = $2, customer_id = $3, date_borrowed = $4, date_returned = $5
		WHERE transaction_id = $1
	`
	tag, err := s.tx.Exec(ctx, query, l.ID, l.BookID, l.CustomerID, l.BorrowedDate, l.ReturnedDate)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *txStore) DeleteLoan(ctx context.Context, id int64) error {
	tag, err := s.tx.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	if postgres.IsUniqueViolation(err) {
		return ErrBookUnavailable
	}
	constraint, ok := postgres.ForeignKeyViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case customerFK:
		return ErrCustomerNotFound
	case bookFK:
		return ErrBookNotFound
	}
	return err
}
