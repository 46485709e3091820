package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/item-rental-backend/internal/api"
	"github.com/nekogravitycat/item-rental-backend/internal/app"
	"github.com/nekogravitycat/item-rental-backend/internal/booking"
	"github.com/nekogravitycat/item-rental-backend/internal/config"
	"github.com/nekogravitycat/item-rental-backend/internal/db"
	"github.com/nekogravitycat/item-rental-backend/internal/logging"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/clock"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Config{}).Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		App:    "item-rental-backend",
		Env:    cfg.AppEnv,
	})

	// Connect DB
	var pool *pgxpool.Pool
	if cfg.StorageDriver == config.StoragePostgres {
		pool, err = db.NewPool(ctx, cfg.DBDSN, cfg.DBMaxConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to db")
		}
		defer pool.Close()
	} else {
		logger.Warn().Msg("using in-memory storage, data is lost on exit")
	}

	container := app.NewContainer(app.Config{
		IsProduction: cfg.IsProduction,
		ProdOrigins:  cfg.ProdOrigins,
		DBPool:       pool,
		Logger:       logger,
		Clock:        clock.System(),
		HeaderAuth:   cfg.AuthMode == config.AuthHeader,
		UserHeader:   cfg.AuthUserHeader,
		JWTSecret:    cfg.JWTSecret,
		JWTTTL:       cfg.JWTAccessTokenTTL,
		Booking: booking.Options{
			PageFallback:  cfg.BookingPageFallback,
			RejectOverlap: cfg.BookingRejectOverlap,
			MaxPageSize:   cfg.BookingMaxPageSize,
		},
		RateLimit: api.RateLimitConfig{
			RPS:     cfg.RateLimitRPS,
			Burst:   cfg.RateLimitBurst,
			IdleTTL: cfg.RateLimitIdleTTL,
		},
		MetricsEnabled: cfg.MetricsEnabled,
	})

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddr).
			Str("storage", cfg.StorageDriver).
			Str("auth", cfg.AuthMode).
			Msg("server running")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited gracefully")
}
