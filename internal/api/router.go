package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/item-rental-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/item-rental-backend/internal/booking/http"
	"github.com/nekogravitycat/item-rental-backend/internal/comment"
	"github.com/nekogravitycat/item-rental-backend/internal/itemview"
	itemHttp "github.com/nekogravitycat/item-rental-backend/internal/itemview/http"
	"github.com/nekogravitycat/item-rental-backend/internal/metrics"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/clock"
)

// Config carries everything the router needs to build handlers.
type Config struct {
	IsProduction   bool
	ProdOrigins    string
	Logger         *zerolog.Logger
	Clock          clock.Clock
	AuthMiddleware gin.HandlerFunc
	RateLimit      RateLimitConfig
	MetricsEnabled bool

	BookingService  booking.Service
	ItemViewService itemview.Service
	CommentService  comment.Service
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - RequestLogger: request id, access log and request metrics.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestLogger(cfg.Logger), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:8081", // Swagger
	}
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Sharer-User-Id"}
	r.Use(cors.New(corsConfig))

	if cfg.MetricsEnabled {
		metrics.Register()
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Authentication runs before the limiter so requests are keyed by user.
	authMiddleware := []gin.HandlerFunc{cfg.AuthMiddleware, RateLimit(newRateLimiter(cfg.RateLimit))}

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.Clock)
	itemHandler := itemHttp.NewHandler(cfg.ItemViewService, cfg.CommentService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware...)
		itemHttp.RegisterRoutes(v1, itemHandler, authMiddleware...)
	}

	return r
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
