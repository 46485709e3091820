package comment

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/item-rental-backend/internal/pkg/apperror"
)

var (
	ErrTextRequired = apperror.New(http.StatusBadRequest, "comment text is required")
	ErrNotRented    = apperror.New(http.StatusBadRequest, "user has not completed a rental of this item")
)

// Comment is a review left on an item by a past renter.
type Comment struct {
	ID         int64
	ItemID     int64
	AuthorID   int64
	AuthorName string
	Text       string
	CreatedAt  time.Time
}
