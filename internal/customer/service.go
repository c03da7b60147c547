package customer

import (
	"context"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, firstName, lastName, email string) (Customer, error) {
	c := Customer{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.ToLower(strings.TrimSpace(email)),
	}
	if err := s.repo.Create(ctx, &c); err != nil {
		return Customer{}, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, firstName, lastName, email string) error {
	return s.repo.Update(ctx, Customer{
		ID:        id,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.ToLower(strings.TrimSpace(email)),
	})
}

// Delete removes a customer who has no transactions.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id int64) (Customer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, q Query) ([]Customer, int, error) {
	return s.repo.List(ctx, q)
}
