package user

import "context"

// Service exposes user lookups to the booking engine.
type Service interface {
	GetByID(ctx context.Context, id int64) (*User, error)
}

type service struct {
	repo Repository
}

// NewService creates a new user Service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id int64) (*User, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}
