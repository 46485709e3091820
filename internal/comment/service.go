package comment

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/item-rental-backend/internal/booking"
	"github.com/nekogravitycat/item-rental-backend/internal/item"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/clock"
	"github.com/nekogravitycat/item-rental-backend/internal/user"
)

type Service interface {
	// Post adds a comment from a user whose approved rental of the item has ended.
	Post(ctx context.Context, authorID, itemID int64, text string) (*Comment, error)
	ListByItem(ctx context.Context, itemID int64) ([]*Comment, error)
}

type service struct {
	repo        Repository
	bookings    booking.Repository
	userService user.Service
	itemService item.Service
	clock       clock.Clock
	logger      *zerolog.Logger
}

func NewService(
	repo Repository,
	bookings booking.Repository,
	userService user.Service,
	itemService item.Service,
	clk clock.Clock,
	logger *zerolog.Logger,
) Service {
	return &service{
		repo:        repo,
		bookings:    bookings,
		userService: userService,
		itemService: itemService,
		clock:       clk,
		logger:      logger,
	}
}

func (s *service) Post(ctx context.Context, authorID, itemID int64, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrTextRequired
	}

	author, err := s.userService.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	it, err := s.itemService.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	rentals, err := s.bookings.FindByItemAndBooker(ctx, it.ID, author.ID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	rented := false
	for _, b := range rentals {
		if b.Status == booking.StatusApproved && b.End.Before(now) {
			rented = true
			break
		}
	}
	if !rented {
		return nil, ErrNotRented
	}

	c := &Comment{
		ItemID:     it.ID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Text:       text,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("comment_id", c.ID).
		Int64("item_id", it.ID).
		Int64("author_id", author.ID).
		Msg("comment posted")

	return c, nil
}

func (s *service) ListByItem(ctx context.Context, itemID int64) ([]*Comment, error) {
	return s.repo.ListByItem(ctx, itemID)
}
