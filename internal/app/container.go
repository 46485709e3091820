package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/item-rental-backend/internal/api"
	"github.com/nekogravitycat/item-rental-backend/internal/auth"
	"github.com/nekogravitycat/item-rental-backend/internal/booking"
	"github.com/nekogravitycat/item-rental-backend/internal/comment"
	"github.com/nekogravitycat/item-rental-backend/internal/item"
	"github.com/nekogravitycat/item-rental-backend/internal/itemview"
	"github.com/nekogravitycat/item-rental-backend/internal/logging"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/clock"
	"github.com/nekogravitycat/item-rental-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	// DBPool selects Postgres storage; when nil every store is in memory.
	DBPool *pgxpool.Pool
	Logger *zerolog.Logger
	Clock  clock.Clock

	// HeaderAuth trusts UserHeader instead of validating bearer tokens.
	HeaderAuth bool
	UserHeader string
	JWTSecret  string
	JWTTTL     time.Duration

	Booking        booking.Options
	RateLimit      api.RateLimitConfig
	MetricsEnabled bool
}

// Repositories exposes the stores so callers can seed or inspect data.
type Repositories struct {
	Users    user.Repository
	Items    item.Repository
	Bookings booking.Repository
	Comments comment.Repository
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router       *gin.Engine
	JWTManager   *auth.JWTManager
	Repositories Repositories
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	authMiddleware := auth.AuthRequired(jwtManager)
	if cfg.HeaderAuth {
		authMiddleware = auth.TrustedHeader(cfg.UserHeader)
	}

	repos := newRepositories(cfg.DBPool)

	// User Module
	userService := user.NewService(repos.Users)

	// Item Module
	itemService := item.NewService(repos.Items)

	// Booking Module
	bookingService := booking.NewService(repos.Bookings, userService, itemService, cfg.Clock, cfg.Logger, cfg.Booking)

	// Comment Module
	commentService := comment.NewService(repos.Comments, repos.Bookings, userService, itemService, cfg.Clock, cfg.Logger)

	// Item View Module
	itemViewService := itemview.NewService(repos.Bookings, userService, itemService, commentService, cfg.Clock)

	// API Router Config
	routerParams := api.Config{
		IsProduction:    cfg.IsProduction,
		ProdOrigins:     cfg.ProdOrigins,
		Logger:          cfg.Logger,
		Clock:           cfg.Clock,
		AuthMiddleware:  authMiddleware,
		RateLimit:       cfg.RateLimit,
		MetricsEnabled:  cfg.MetricsEnabled,
		BookingService:  bookingService,
		ItemViewService: itemViewService,
		CommentService:  commentService,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:       router,
		JWTManager:   jwtManager,
		Repositories: repos,
	}
}

func newRepositories(pool *pgxpool.Pool) Repositories {
	if pool == nil {
		return Repositories{
			Users:    user.NewMemoryRepository(),
			Items:    item.NewMemoryRepository(),
			Bookings: booking.NewMemoryRepository(),
			Comments: comment.NewMemoryRepository(),
		}
	}
	return Repositories{
		Users:    user.NewPgxRepository(pool),
		Items:    item.NewPgxRepository(pool),
		Bookings: booking.NewPgxRepository(pool),
		Comments: comment.NewPgxRepository(pool),
	}
}
