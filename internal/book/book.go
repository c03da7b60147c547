// Package book manages the catalog: books with their author and genre.
//
// Catalog writes never touch a book's availability. New books start
// available and only the loan ledger changes the flag afterwards.
package book

import (
	"time"

	"libraryapi/internal/apperr"
)

var (
	ErrNotFound = apperr.NotFound("book not found")
	ErrInUse    = apperr.Conflict("book has transactions")
)

type Author struct {
	ID        int64  `json:"author_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Genre struct {
	ID   int64  `json:"genre_id"`
	Name string `json:"name"`
}

// Book is a catalog entry joined with its author and genre.
type Book struct {
	ID            int64   `json:"book_id"`
	Title         string  `json:"title"`
	Author        Author  `json:"author"`
	Genre         Genre   `json:"genre"`
	PublishedDate string  `json:"published_date"`
	Price         float64 `json:"price"`
	Availability  bool    `json:"availability"`
}

// Input holds the writable fields of a book. The author and genre are
// looked up by name and created when missing.
type Input struct {
	Title           string
	AuthorFirstName string
	AuthorLastName  string
	GenreName       string
	PublishedDate   time.Time
	Price           float64
}

// Query defines filters and pagination for listing books.
type Query struct {
	Title     string
	Genre     string
	Author    string
	Available *bool
	AfterID   int64
	Limit     int
	Offset    int
}
