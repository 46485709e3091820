package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	AuthJWT    = "jwt"
	AuthHeader = "header"
)

// Config holds all application configuration loaded from environment.
type Config struct {
	AppEnv       string
	IsProduction bool
	ProdOrigins  string
	HTTPAddr     string

	StorageDriver string
	DBDSN         string
	DBMaxConns    int

	AuthMode          string
	AuthUserHeader    string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration

	LogLevel  string
	LogFormat string

	BookingPageFallback  bool
	BookingRejectOverlap bool
	BookingMaxPageSize   int

	RateLimitRPS     float64
	RateLimitBurst   int
	RateLimitIdleTTL time.Duration

	MetricsEnabled bool
}

// Load loads configuration from .env (optional) and environment variables.
// A missing .env file is not an error.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	var err error

	// Application environment (default: dev)
	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.IsProduction = cfg.AppEnv == PROD_STRING

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres))
	switch cfg.StorageDriver {
	case StoragePostgres:
		// Database DSN is required
		cfg.DBDSN = os.Getenv("DB_DSN")
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	cfg.DBMaxConns, err = getEnvAsInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	// Bearer tokens are minted by the upstream identity service, so header auth is the default.
	cfg.AuthMode = strings.ToLower(getEnv("AUTH_MODE", AuthHeader))
	cfg.AuthUserHeader = getEnv("AUTH_USER_HEADER", "X-Sharer-User-Id")
	switch cfg.AuthMode {
	case AuthJWT:
		// JWT secret is required for verifying tokens
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
	case AuthHeader:
	default:
		return nil, fmt.Errorf("invalid AUTH_MODE %q", cfg.AuthMode)
	}

	// JWT access token TTL, parse as time.Duration (e.g. "15m", "1h").
	ttlStr := getEnv("JWT_ACCESS_TOKEN_TTL", "15m")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_TTL: %w", err)
	}
	cfg.JWTAccessTokenTTL = ttl

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	if cfg.BookingPageFallback, err = getEnvAsBool("BOOKING_PAGE_FALLBACK", false); err != nil {
		return nil, fmt.Errorf("invalid BOOKING_PAGE_FALLBACK: %w", err)
	}
	if cfg.BookingRejectOverlap, err = getEnvAsBool("BOOKING_REJECT_OVERLAP", false); err != nil {
		return nil, fmt.Errorf("invalid BOOKING_REJECT_OVERLAP: %w", err)
	}
	if cfg.BookingMaxPageSize, err = getEnvAsInt("BOOKING_MAX_PAGE_SIZE", 100); err != nil {
		return nil, fmt.Errorf("invalid BOOKING_MAX_PAGE_SIZE: %w", err)
	}
	if cfg.BookingMaxPageSize < 1 || cfg.BookingMaxPageSize > 100 {
		return nil, fmt.Errorf("BOOKING_MAX_PAGE_SIZE must be between 1 and 100")
	}

	rps := getEnv("RATE_LIMIT_RPS", "0")
	if cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = getEnvAsInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	if cfg.RateLimitIdleTTL, err = time.ParseDuration(getEnv("RATE_LIMIT_IDLE_TTL", "10m")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_IDLE_TTL: %w", err)
	}

	if cfg.MetricsEnabled, err = getEnvAsBool("METRICS_ENABLED", true); err != nil {
		return nil, fmt.Errorf("invalid METRICS_ENABLED: %w", err)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		// Return 0 and a wrapped error to provide context
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("env %s value %q is not a valid boolean: %w", key, valStr, err)
	}

	return val, nil
}
