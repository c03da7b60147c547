package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"libraryapi/internal/apperr"
	"libraryapi/internal/config"
	"libraryapi/internal/loan"
	"libraryapi/internal/platform/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	firstNames = []string{"Ada", "Alan", "Grace", "Edsger", "Barbara", "Donald", "Margaret", "Ken", "Frances", "Dennis"}
	lastNames  = []string{"Lovelace", "Turing", "Hopper", "Dijkstra", "Liskov", "Knuth", "Hamilton", "Thompson", "Allen", "Ritchie"}
	genres     = []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography", "Philosophy", "Art"}
	words      = []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
		"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
	}
)

func main() {
	var (
		books     = flag.Int("books", 1000, "Number of books to insert")
		customers = flag.Int("customers", 200, "Number of customers to insert")
		loans     = flag.Int("loans", 300, "Number of loans to attempt")
	)
	flag.Parse()

	config.LoadEnvFiles()
	ctx := context.Background()

	pool, err := postgres.Open(ctx, config.DatabaseDSN())
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := seed(ctx, pool, *books, *customers, *loans); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, pool *pgxpool.Pool, bookCount, customerCount, loanCount int) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := seedReferenceData(ctx, pool); err != nil {
		return err
	}
	authorIDs, err := ids(ctx, pool, `SELECT author_id FROM authors`)
	if err != nil {
		return err
	}
	genreIDs, err := ids(ctx, pool, `SELECT genre_id FROM genres`)
	if err != nil {
		return err
	}

	bookRows := make([][]any, 0, bookCount)
	for i := 0; i < bookCount; i++ {
		year := 1950 + rng.Intn(75)
		bookRows = append(bookRows, []any{
			fmt.Sprintf("Book Title %d - %s", i+1, words[rng.Intn(len(words))]),
			authorIDs[rng.Intn(len(authorIDs))],
			genreIDs[rng.Intn(len(genreIDs))],
			time.Date(year, time.Month(1+rng.Intn(12)), 1, 0, 0, 0, 0, time.UTC),
			float64(500+rng.Intn(4500)) / 100,
		})
	}
	n, err := pool.CopyFrom(ctx, pgx.Identifier{"books"},
		[]string{"title", "author_id", "genre_id", "published_date", "price"},
		pgx.CopyFromRows(bookRows))
	if err != nil {
		return fmt.Errorf("copy books: %w", err)
	}
	slog.Info("inserted books", "count", n)

	customerRows := make([][]any, 0, customerCount)
	for i := 0; i < customerCount; i++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		customerRows = append(customerRows, []any{first, last, fmt.Sprintf("reader%d@example.com", i+1)})
	}
	n, err = pool.CopyFrom(ctx, pgx.Identifier{"customers"},
		[]string{"first_name", "last_name", "email"},
		pgx.CopyFromRows(customerRows))
	if err != nil {
		return fmt.Errorf("copy customers: %w", err)
	}
	slog.Info("inserted customers", "count", n)

	return seedLoans(ctx, pool, rng, loanCount)
}

func seedReferenceData(ctx context.Context, pool *pgxpool.Pool) error {
	batch := &pgx.Batch{}
	for _, first := range firstNames {
		for _, last := range lastNames {
			batch.Queue(`INSERT INTO authors (first_name, last_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, first, last)
		}
	}
	for _, g := range genres {
		batch.Queue(`INSERT INTO genres (name) VALUES ($1) ON CONFLICT DO NOTHING`, g)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed authors and genres: %w", err)
	}
	return nil
}

func ids(ctx context.Context, pool *pgxpool.Pool, query string) ([]int64, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// seedLoans goes through the loan service so every book's availability
// matches the loans written.
func seedLoans(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, count int) error {
	var maxBook, maxCustomer int64
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(book_id), 0), (SELECT COALESCE(MAX(customer_id), 0) FROM customers) FROM books`).Scan(&maxBook, &maxCustomer); err != nil {
		return err
	}
	if maxBook == 0 || maxCustomer == 0 {
		return nil
	}

	svc := loan.NewService(loan.NewPostgresRepo(pool, 5*time.Second), loan.WithLogger(slog.New(slog.DiscardHandler)))
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var created, skipped int
	for i := 0; i < count; i++ {
		borrowed := today.AddDate(0, 0, -rng.Intn(120))
		in := loan.CreateInput{
			BookID:       1 + rng.Int63n(maxBook),
			CustomerID:   1 + rng.Int63n(maxCustomer),
			BorrowedDate: borrowed,
		}
		if rng.Intn(3) > 0 {
			returned := borrowed.AddDate(0, 0, 1+rng.Intn(21))
			in.ReturnedDate = &returned
		}

		_, err := svc.CreateLoan(ctx, in)
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrValidation):
			skipped++
		default:
			return err
		}
	}
	slog.Info("inserted loans", "created", created, "skipped", skipped)
	return nil
}
