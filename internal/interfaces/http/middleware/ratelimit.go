package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RateLimitConfig configures one fixed-window limiter
type RateLimitConfig struct {
	// Name separates the counters of different limiters sharing a store
	Name   string
	Limit  int
	Window time.Duration
	// KeyFunc picks the client key; defaults to the client IP
	KeyFunc func(*gin.Context) string
}

// RateLimit counts requests per client in fixed windows and answers 429
// once Limit is exceeded. A failing store lets requests through.
func RateLimit(store cache.RateLimitStore, cfg RateLimitConfig, log *zap.Logger) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	limit := strconv.Itoa(cfg.Limit)

	return func(c *gin.Context) {
		key := cfg.Name + ":" + keyFunc(c)
		count, resetAt, err := store.Increment(c.Request.Context(), key, cfg.Window)
		if err != nil {
			log.Warn("Rate limit store unavailable", zap.String("limiter", cfg.Name), zap.Error(err))
			c.Next()
			return
		}

		remaining := cfg.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > cfg.Limit {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				shared.CodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}
