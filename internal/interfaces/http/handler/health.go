package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wms/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const healthCheckTimeout = 3 * time.Second

// Pinger is a dependency whose reachability is reported by /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping implements Pinger
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports the health of the service and its dependencies
type HealthHandler struct {
	database Pinger
	redis    Pinger
}

// NewHealthHandler creates a new HealthHandler; redis may be nil
func NewHealthHandler(database, redis Pinger) *HealthHandler {
	return &HealthHandler{database: database, redis: redis}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	body := gin.H{
		"status":   "healthy",
		"time":     time.Now().UTC().Format(time.RFC3339),
		"database": "ok",
	}

	if err := h.database.Ping(ctx); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.String("dependency", "database"), zap.Error(err))
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = "error"
	}

	if h.redis != nil {
		body["redis"] = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			// Redis only backs locks and rate limits, so it degrades the service
			logger.GetGinLogger(c).Warn("Health check degraded", zap.String("dependency", "redis"), zap.Error(err))
			body["redis"] = "error"
			if status == http.StatusOK {
				body["status"] = "degraded"
			}
		}
	}

	c.JSON(status, body)
}
