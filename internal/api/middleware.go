package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/item-rental-backend/internal/auth"
	"github.com/nekogravitycat/item-rental-backend/internal/metrics"
)

const requestIDHeader = "X-Request-Id"

// RequestLogger attaches a request-scoped logger to the request context and
// writes one access log line per request. Incoming X-Request-Id values are reused.
func RequestLogger(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		reqLogger := logger.With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(reqLogger.WithContext(c.Request.Context()))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.IncHTTP(c.Request.Method, route, status)

		event := reqLogger.Info()
		if status >= http.StatusInternalServerError {
			event = reqLogger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Int64("user_id", auth.GetUserID(c)).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

// RateLimit throttles requests per authenticated user, falling back to client IP.
// It MUST be used after the auth middleware to key by user.
func RateLimit(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := c.ClientIP()
		if id := auth.GetUserID(c); id != 0 {
			key = "user:" + formatID(id)
		}

		if !limiter.getLimiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
