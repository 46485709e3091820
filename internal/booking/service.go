package booking

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/item-rental-backend/internal/item"
	"github.com/nekogravitycat/item-rental-backend/internal/metrics"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/clock"
	"github.com/nekogravitycat/item-rental-backend/internal/user"
)

const DefaultMaxPageSize = 100

type CreateRequest struct {
	ItemID int64
	Start  time.Time
	End    time.Time
}

// Options tunes policies that are off by default.
type Options struct {
	// PageFallback redirects an empty page to the nearest earlier non-empty page,
	// failing with ErrEmpty when even the first page is empty.
	PageFallback bool
	// RejectOverlap refuses creation when a non-rejected booking of the item intersects the window.
	RejectOverlap bool
	MaxPageSize   int
}

type Service interface {
	Create(ctx context.Context, requesterID int64, req CreateRequest) (*Booking, error)
	Decide(ctx context.Context, ownerID, bookingID int64, approved bool) (*Booking, error)
	Get(ctx context.Context, requesterID, bookingID int64) (*Booking, error)
	ListForBooker(ctx context.Context, bookerID int64, state string, from, size int) ([]*Booking, error)
	ListForOwner(ctx context.Context, ownerID int64, state string, from, size int) ([]*Booking, error)
}

type service struct {
	repo        Repository
	userService user.Service
	itemService item.Service
	clock       clock.Clock
	logger      *zerolog.Logger
	opts        Options
}

func NewService(
	repo Repository,
	userService user.Service,
	itemService item.Service,
	clk clock.Clock,
	logger *zerolog.Logger,
	opts Options,
) Service {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}
	return &service{
		repo:        repo,
		userService: userService,
		itemService: itemService,
		clock:       clk,
		logger:      logger,
		opts:        opts,
	}
}

func (s *service) Create(ctx context.Context, requesterID int64, req CreateRequest) (*Booking, error) {
	booker, err := s.userService.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	it, err := s.itemService.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if !it.Available {
		return nil, ErrItemUnavailable
	}
	if it.OwnerID == booker.ID {
		return nil, ErrOwnItem
	}

	start, end := req.Start.UTC(), req.End.UTC()
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}

	if s.opts.RejectOverlap {
		hasOverlap, err := s.repo.HasOverlap(ctx, it.ID, start, end)
		if err != nil {
			return nil, err
		}
		if hasOverlap {
			return nil, ErrTimeConflict
		}
	}

	b := &Booking{
		ItemID:      it.ID,
		ItemName:    it.Name,
		ItemOwnerID: it.OwnerID,
		BookerID:    booker.ID,
		BookerName:  booker.Name,
		Start:       start,
		End:         end,
		Status:      StatusWaiting,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("booker_id", booker.ID).
		Int64("item_id", it.ID).
		Msg("booking requested")

	return b, nil
}

func (s *service) Decide(ctx context.Context, ownerID, bookingID int64, approved bool) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	it, err := s.itemService.GetByID(ctx, b.ItemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userService.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	if it.OwnerID != ownerID {
		return nil, ErrNotItemOwner
	}

	target := StatusRejected
	if approved {
		target = StatusApproved
	}
	if !b.Status.CanTransitionTo(target) {
		return nil, ErrAlreadyDecided
	}

	if err := s.repo.UpdateStatus(ctx, b.ID, b.Status, target); err != nil {
		return nil, err
	}
	b.Status = target

	metrics.IncBookingDecision(target.String())
	s.logger.Debug().
		Int64("booking_id", b.ID).
		Str("status", target.String()).
		Msg("booking decided")

	return b, nil
}

func (s *service) Get(ctx context.Context, requesterID, bookingID int64) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userService.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	if requesterID != b.ItemOwnerID && requesterID != b.BookerID {
		return nil, ErrNoAccess
	}
	return b, nil
}

func (s *service) ListForBooker(ctx context.Context, bookerID int64, state string, from, size int) ([]*Booking, error) {
	return s.list(ctx, "booker", Filter{BookerID: bookerID}, bookerID, state, from, size)
}

func (s *service) ListForOwner(ctx context.Context, ownerID int64, state string, from, size int) ([]*Booking, error) {
	return s.list(ctx, "owner", Filter{OwnerID: ownerID}, ownerID, state, from, size)
}

func (s *service) list(ctx context.Context, scope string, filter Filter, actorID int64, state string, from, size int) ([]*Booking, error) {
	if _, err := s.userService.GetByID(ctx, actorID); err != nil {
		return nil, err
	}

	view, err := ParseView(state)
	if err != nil {
		return nil, err
	}
	if from < 0 || size < 1 || size > s.opts.MaxPageSize {
		return nil, ErrInvalidPage
	}

	filter, err = view.Apply(filter, s.clock.Now())
	if err != nil {
		return nil, err
	}
	filter.Page = from / size
	filter.PageSize = size

	page, err := s.fetch(ctx, filter)
	if err != nil {
		return nil, err
	}

	metrics.IncBookingList(scope, view.String())
	s.logger.Debug().
		Str("scope", scope).
		Int64("actor_id", actorID).
		Str("view", view.String()).
		Int("page", page.Index).
		Int("count", len(page.Items)).
		Msg("bookings listed")

	return page.Items, nil
}

// fetch runs the query, applying the fallback policy when enabled.
// An empty page past the end is redirected to the last non-empty page in one step.
func (s *service) fetch(ctx context.Context, filter Filter) (*Page, error) {
	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if !s.opts.PageFallback || !page.IsEmpty() {
		return page, nil
	}

	if page.Total == 0 {
		return nil, ErrEmpty
	}
	last := page.LastIndex()
	if last >= page.Index {
		return page, nil
	}

	metrics.IncPageFallback()
	filter.Page = last
	return s.repo.List(ctx, filter)
}
