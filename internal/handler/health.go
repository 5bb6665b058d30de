package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler implements the health check endpoint
type HealthHandler struct {
	db      Pinger
	storage string
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db is nil when the in-memory
// stores are in use.
func NewHealthHandler(db Pinger, storage, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		storage: storage,
		version: version,
		logger:  logger,
	}
}

// GetHealth checks store connectivity
// GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			h.logger.Error("health check failed: database unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
				"error":    err.Error(),
			})
			return
		}
	}

	database := "connected"
	if h.db == nil {
		database = "not configured"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": database,
		"storage":  h.storage,
		"service":  "goutguard-backend",
		"version":  h.version,
	})
}
