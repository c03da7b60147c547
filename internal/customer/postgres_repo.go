package customer

import (
	"context"
	"errors"
	"time"

	"libraryapi/internal/platform/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

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

func (r *PostgresRepo) Create(ctx context.Context, c *Customer) error {
	const query = `
	INSERT INTO customers (first_name, last_name, email)
	VALUES ($1, $2, $3)
	RETURNING customer_id
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.QueryRow(timeoutCtx, query, c.FirstName, c.LastName, c.Email).Scan(&c.ID)
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Customer, error) {
	const query = `
	SELECT customer_id, first_name, last_name, email
	FROM customers
	WHERE customer_id = $1
	`
	var c Customer
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, id).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *PostgresRepo) Update(ctx context.Context, c Customer) error {
	const query = `
	UPDATE customers
	SET first_name = $2, last_name = $3, email = $4
	WHERE customer_id = $1
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, c.ID, c.FirstName, c.LastName, c.Email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM customers WHERE customer_id = $1`, id)
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

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Customer, int, error) {
	const countSQL = `
	SELECT COUNT(*)
	FROM customers
	WHERE (first_name || ' ' || last_name) ILIKE $1
	`
	const listSQL = `
	SELECT customer_id, first_name, last_name, email
	FROM customers
	WHERE (first_name || ' ' || last_name) ILIKE $1
	ORDER BY last_name, first_name, customer_id
	LIMIT $2 OFFSET $3
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	pattern := postgres.ContainsPattern(q.Name)
	var total int
	if err := r.db.QueryRow(timeoutCtx, countSQL, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(timeoutCtx, listSQL, pattern, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Customer{}
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
