// Package itemview assembles the item detail shown to a viewer.
package itemview

import (
	"context"

	"github.com/nekogravitycat/item-rental-backend/internal/booking"
	"github.com/nekogravitycat/item-rental-backend/internal/comment"
	"github.com/nekogravitycat/item-rental-backend/internal/item"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/clock"
	"github.com/nekogravitycat/item-rental-backend/internal/user"
)

// BookingRef identifies a booking and its booker.
type BookingRef struct {
	ID       int64
	BookerID int64
}

// Detail is an item with its comments and, for the owner, the adjacent rentals.
type Detail struct {
	Item        *item.Item
	LastBooking *BookingRef
	NextBooking *BookingRef
	Comments    []*comment.Comment
}

type Service interface {
	Get(ctx context.Context, viewerID, itemID int64) (*Detail, error)
}

type service struct {
	bookings       booking.Repository
	userService    user.Service
	itemService    item.Service
	commentService comment.Service
	clock          clock.Clock
}

func NewService(
	bookings booking.Repository,
	userService user.Service,
	itemService item.Service,
	commentService comment.Service,
	clk clock.Clock,
) Service {
	return &service{
		bookings:       bookings,
		userService:    userService,
		itemService:    itemService,
		commentService: commentService,
		clock:          clk,
	}
}

func (s *service) Get(ctx context.Context, viewerID, itemID int64) (*Detail, error) {
	if _, err := s.userService.GetByID(ctx, viewerID); err != nil {
		return nil, err
	}
	it, err := s.itemService.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentService.ListByItem(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	d := &Detail{Item: it, Comments: comments}

	if it.OwnerID != viewerID {
		return d, nil
	}

	last, next, err := s.bookings.FindRentalWindow(ctx, it.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	d.LastBooking = firstRef(last)
	d.NextBooking = firstRef(next)
	return d, nil
}

func firstRef(bookings []*booking.Booking) *BookingRef {
	if len(bookings) == 0 {
		return nil
	}
	return &BookingRef{ID: bookings[0].ID, BookerID: bookings[0].BookerID}
}
