package item

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/item-rental-backend/internal/pkg/apperror"
)

var (
	ErrNotFound      = apperror.New(http.StatusNotFound, "item not found")
	ErrOwnerNotFound = apperror.New(http.StatusNotFound, "item owner not found")
)

// Item represents a rentable thing listed by its owner.
type Item struct {
	ID          int64
	OwnerID     int64
	Name        string
	Description string
	Available   bool
	CreatedAt   time.Time
}
