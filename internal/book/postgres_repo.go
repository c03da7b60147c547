package book

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

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
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

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Book, error) {
	query, args, err := bookColumns(booksFrom()).
		Where(goqu.I("b.book_id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Book{}, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) Create(ctx context.Context, in Input) (int64, error) {
	const query = `
		INSERT INTO books (title, author_id, genre_id, published_date, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING book_id
	`
	var id int64
	err := r.withinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		authorID, genreID, err := resolveRefs(ctx, tx, in)
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, query, in.Title, authorID, genreID, in.PublishedDate, in.Price).Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, in Input) error {
	const query = `
		UPDATE books
		SET title = $2, author_id = $3, genre_id = $4, published_date = $5, price = $6
		WHERE book_id = $1
	`
	return r.withinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		authorID, genreID, err := resolveRefs(ctx, tx, in)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, query, id, in.Title, authorID, genreID, in.PublishedDate, in.Price)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE book_id = $1`, id)
	if err != nil {
		if _, ok := postgres.ForeignKeyViolation(err); ok {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) withinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(timeoutCtx)

	if err := fn(timeoutCtx, tx); err != nil {
		return err
	}
	return tx.Commit(timeoutCtx)
}

// resolveRefs finds or creates the author and genre named by in.
func resolveRefs(ctx context.Context, tx pgx.Tx, in Input) (authorID, genreID int64, err error) {
	const authorSQL = `
		INSERT INTO authors (first_name, last_name)
		VALUES ($1, $2)
		ON CONFLICT (first_name, last_name) DO UPDATE SET first_name = EXCLUDED.first_name
		RETURNING author_id
	`
	const genreSQL = `
		INSERT INTO genres (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING genre_id
	`
	if err = tx.QueryRow(ctx, authorSQL, in.AuthorFirstName, in.AuthorLastName).Scan(&authorID); err != nil {
		return 0, 0, fmt.Errorf("resolve author: %w", err)
	}
	if err = tx.QueryRow(ctx, genreSQL, in.GenreName).Scan(&genreID); err != nil {
		return 0, 0, fmt.Errorf("resolve genre: %w", err)
	}
	return authorID, genreID, nil
}

func booksFrom() *goqu.SelectDataset {
	return dialect.From(goqu.T("books").As("b")).
		Join(goqu.T("authors").As("a"), goqu.On(goqu.I("a.author_id").Eq(goqu.I("b.author_id")))).
		Join(goqu.T("genres").As("g"), goqu.On(goqu.I("g.genre_id").Eq(goqu.I("b.genre_id"))))
}

func bookColumns(ds *goqu.SelectDataset) *goqu.SelectDataset {
	return ds.Select(
		goqu.I("b.book_id"),
		goqu.I("b.title"),
		goqu.I("a.author_id"),
		goqu.I("a.first_name"),
		goqu.I("a.last_name"),
		goqu.I("g.genre_id"),
		goqu.I("g.name"),
		goqu.I("b.published_date"),
		goqu.I("b.price"),
		goqu.I("b.availability"),
	)
}

func listFilters(q Query) []goqu.Expression {
	var where []goqu.Expression
	if q.Title != "" {
		where = append(where, goqu.I("b.title").ILike(postgres.ContainsPattern(q.Title)))
	}
	if q.Genre != "" {
		where = append(where, goqu.I("g.name").ILike(postgres.ContainsPattern(q.Genre)))
	}
	if q.Author != "" {
		pattern := postgres.ContainsPattern(q.Author)
		where = append(where, goqu.Or(
			goqu.I("a.first_name").ILike(pattern),
			goqu.I("a.last_name").ILike(pattern),
		))
	}
	if q.Available != nil {
		where = append(where, goqu.I("b.availability").Eq(*q.Available))
	}
	return where
}

// listSQL builds the page query and the matching count. A cursor replaces
// the offset but does not narrow the count.
func listSQL(q Query) (dataSQL string, dataArgs []any, countSQL string, countArgs []any, err error) {
	where := listFilters(q)

	countSQL, countArgs, err = booksFrom().
		Select(goqu.COUNT("*")).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("build count query: %w", err)
	}

	ds := bookColumns(booksFrom()).Where(where...)
	if q.AfterID > 0 {
		ds = ds.Where(goqu.I("b.book_id").Gt(q.AfterID))
	} else if q.Offset > 0 {
		ds = ds.Offset(uint(q.Offset))
	}
	ds = ds.Order(goqu.I("b.book_id").Asc())
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}

	dataSQL, dataArgs, err = ds.Prepared(true).ToSQL()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("build list query: %w", err)
	}
	return dataSQL, dataArgs, countSQL, countArgs, nil
}

func scanBook(row pgx.Row) (Book, error) {
	var (
		b         Book
		published time.Time
	)
	err := row.Scan(
		&b.ID, &b.Title,
		&b.Author.ID, &b.Author.FirstName, &b.Author.LastName,
		&b.Genre.ID, &b.Genre.Name,
		&published, &b.Price, &b.Availability,
	)
	if err != nil {
		return Book{}, err
	}
	b.PublishedDate = date.Format(published)
	return b, nil
}
