package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/item-rental-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "user not found")
	ErrEmailAlreadyUsed = apperror.New(http.StatusConflict, "email already used")
)

// User is a platform member. Profiles are managed elsewhere; this service only looks them up.
type User struct {
	ID        int64
	Email     string
	Name      string
	CreatedAt time.Time
}
