package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/item-rental-backend/internal/pkg/apperror"
)

// View is a query-time classification of bookings. It is never persisted.
type View uint8

const (
	ViewAll View = iota + 1
	ViewCurrent
	ViewPast
	ViewFuture
	ViewWaiting
	ViewRejected
	ViewApproved
)

var viewsByName = map[string]View{
	"ALL":      ViewAll,
	"CURRENT":  ViewCurrent,
	"PAST":     ViewPast,
	"FUTURE":   ViewFuture,
	"WAITING":  ViewWaiting,
	"REJECTED": ViewRejected,
	"APPROVED": ViewApproved,
}

// ParseView matches s exactly against the view vocabulary.
func ParseView(s string) (View, error) {
	v, ok := viewsByName[s]
	if !ok {
		return 0, unknownState(s)
	}
	return v, nil
}

func (v View) String() string {
	switch v {
	case ViewAll:
		return "ALL"
	case ViewCurrent:
		return "CURRENT"
	case ViewPast:
		return "PAST"
	case ViewFuture:
		return "FUTURE"
	case ViewWaiting:
		return "WAITING"
	case ViewRejected:
		return "REJECTED"
	case ViewApproved:
		return "APPROVED"
	default:
		return fmt.Sprintf("View(%d)", uint8(v))
	}
}

// Apply qualifies f for the view, evaluated at now.
func (v View) Apply(f Filter, now time.Time) (Filter, error) {
	switch v {
	case ViewAll:
	case ViewPast:
		f.EndBefore = &now
	case ViewFuture:
		f.StartAfter = &now
	case ViewCurrent:
		f.ActiveAt = &now
	case ViewWaiting:
		f.Status = statusPtr(StatusWaiting)
	case ViewRejected:
		f.Status = statusPtr(StatusRejected)
	case ViewApproved:
		f.Status = statusPtr(StatusApproved)
	default:
		return f, unknownState(v.String())
	}
	return f, nil
}

func unknownState(state string) error {
	return apperror.Wrap(ErrUnknownState, http.StatusBadRequest, fmt.Sprintf("Unknown state: %s", state))
}

func statusPtr(s Status) *Status {
	return &s
}
