package book

import (
	"context"
	"strings"
)

// Service provides book-related business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a list of books matching the query.
func (s *Service) List(ctx context.Context, q Query) ([]Book, int, error) {
	return s.repo.List(ctx, q)
}

// GetByID returns a book by its id.
func (s *Service) GetByID(ctx context.Context, id int64) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// Create adds a book, creating its author and genre if needed.
func (s *Service) Create(ctx context.Context, in Input) (int64, error) {
	return s.repo.Create(ctx, normalize(in))
}

// Update replaces a book's catalog fields. Availability is left alone.
func (s *Service) Update(ctx context.Context, id int64, in Input) error {
	return s.repo.Update(ctx, id, normalize(in))
}

// Delete removes a book that has never been lent.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func normalize(in Input) Input {
	in.Title = strings.TrimSpace(in.Title)
	in.AuthorFirstName = strings.TrimSpace(in.AuthorFirstName)
	in.AuthorLastName = strings.TrimSpace(in.AuthorLastName)
	in.GenreName = strings.TrimSpace(in.GenreName)
	return in
}
