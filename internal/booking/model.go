package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/item-rental-backend/internal/pkg/apperror"
)

// Authorization failures are reported as not found.
var (
	ErrNotFound     = apperror.New(http.StatusNotFound, "booking not found")
	ErrOwnItem      = apperror.New(http.StatusNotFound, "owner cannot book their own item")
	ErrNotItemOwner = apperror.New(http.StatusNotFound, "item does not belong to the user")
	ErrNoAccess     = apperror.New(http.StatusNotFound, "no access to this booking")

	ErrItemUnavailable  = apperror.New(http.StatusBadRequest, "item is not available for booking")
	ErrInvalidTimeRange = apperror.New(http.StatusBadRequest, "end must be after start")
	ErrStartInPast      = apperror.New(http.StatusBadRequest, "start must not be in the past")
	ErrEndInPast        = apperror.New(http.StatusBadRequest, "end must be in the future")
	ErrAlreadyDecided   = apperror.New(http.StatusBadRequest, "booking status is not WAITING")
	ErrUnknownState     = apperror.New(http.StatusBadRequest, "Unknown state")
	ErrInvalidPage      = apperror.New(http.StatusBadRequest, "invalid pagination parameters")
	ErrEmpty            = apperror.New(http.StatusBadRequest, "no bookings found")
	ErrInvalidStatus    = apperror.New(http.StatusBadRequest, "invalid booking status")

	ErrTimeConflict = apperror.New(http.StatusConflict, "time slot already booked")
)

// Status is the persisted decision state of a booking.
type Status uint8

const (
	StatusWaiting Status = iota + 1
	StatusApproved
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "WAITING"
	case StatusApproved:
		return "APPROVED"
	case StatusRejected:
		return "REJECTED"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// ParseStatus converts a status literal into a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "WAITING":
		return StatusWaiting, nil
	case "APPROVED":
		return StatusApproved, nil
	case "REJECTED":
		return StatusRejected, nil
	default:
		return 0, apperror.Wrap(ErrInvalidStatus, http.StatusBadRequest, fmt.Sprintf("invalid booking status: %s", s))
	}
}

// CanTransitionTo reports whether a booking in s may move to target.
// WAITING is the only state with outgoing transitions.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusWaiting:
		return target == StatusApproved || target == StatusRejected
	case StatusApproved, StatusRejected:
		return false
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	return s != StatusWaiting
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Booking is a reservation of an item for a time window.
// ItemName, ItemOwnerID and BookerName are read-side projections of the related rows.
type Booking struct {
	ID          int64
	ItemID      int64
	ItemName    string
	ItemOwnerID int64
	BookerID    int64
	BookerName  string
	Start       time.Time
	End         time.Time
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActiveAt reports start <= t <= end.
func (b *Booking) IsActiveAt(t time.Time) bool {
	return !t.Before(b.Start) && !t.After(b.End)
}

// Filter is a qualified store query. Exactly one of BookerID or OwnerID scopes it.
type Filter struct {
	BookerID int64
	OwnerID  int64

	Status     *Status
	EndBefore  *time.Time // end < t
	StartAfter *time.Time // start > t
	ActiveAt   *time.Time // start <= t AND end >= t

	Page     int // zero-based page index
	PageSize int
}

// Page is one window of a start-descending result set.
type Page struct {
	Items []*Booking
	Index int
	Size  int
	Total int
}

func (p *Page) IsEmpty() bool {
	return len(p.Items) == 0
}

func (p *Page) HasNext() bool {
	return (p.Index+1)*p.Size < p.Total
}

func (p *Page) HasPrevious() bool {
	return p.Index > 0
}

// LastIndex returns the index of the final non-empty page, or 0 when there are no items.
func (p *Page) LastIndex() int {
	if p.Total == 0 || p.Size < 1 {
		return 0
	}
	return (p.Total - 1) / p.Size
}
