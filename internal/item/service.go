package item

import "context"

// Service exposes item lookups to the booking engine.
type Service interface {
	GetByID(ctx context.Context, id int64) (*Item, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id int64) (*Item, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}
