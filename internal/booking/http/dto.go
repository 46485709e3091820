package http

import (
	"time"

	"github.com/nekogravitycat/item-rental-backend/internal/booking"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/localtime"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/request"
)

// ListBookingsRequest defines query parameters for listing bookings.
// State is validated by the service so unknown values produce "Unknown state: X".
type ListBookingsRequest struct {
	request.ListParams
	State string `form:"state,default=ALL"`
}

// DecideRequest carries the owner's verdict from the query string.
type DecideRequest struct {
	Approved *bool `form:"approved" binding:"required"`
}

type CreateBookingBody struct {
	ItemID int64              `json:"itemId" binding:"required,min=1"`
	Start  localtime.DateTime `json:"start"`
	End    localtime.DateTime `json:"end"`
}

// Validate performs custom validation for CreateBookingBody.
func (r *CreateBookingBody) Validate(now time.Time) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return booking.ErrInvalidTimeRange
	}
	if r.Start.Before(now) {
		return booking.ErrStartInPast
	}
	if !r.End.After(now) {
		return booking.ErrEndInPast
	}
	return nil
}

type UserTag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ItemTag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type BookingResponse struct {
	ID     int64              `json:"id"`
	Start  localtime.DateTime `json:"start"`
	End    localtime.DateTime `json:"end"`
	Status booking.Status     `json:"status"`
	Booker UserTag            `json:"booker"`
	Item   ItemTag            `json:"item"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:     b.ID,
		Start:  localtime.From(b.Start),
		End:    localtime.From(b.End),
		Status: b.Status,
		Booker: UserTag{ID: b.BookerID, Name: b.BookerName},
		Item:   ItemTag{ID: b.ItemID, Name: b.ItemName},
	}
}

func NewBookingListResponse(bookings []*booking.Booking) []BookingResponse {
	items := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, NewBookingResponse(b))
	}
	return items
}
