package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/service"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/api"
	"go.uber.org/zap"
)

// ServiceName and Version are reported by the health check
const (
	ServiceName = "raredx-backend"
	Version     = "1.0.0"
)

// Pinger checks a dependency is reachable; *pgxpool.Pool satisfies it
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler implements the health check endpoint
type HealthHandler struct {
	db       Pinger
	sessions *service.IntakeService
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil when no
// database is configured.
func NewHealthHandler(db Pinger, sessions *service.IntakeService, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		sessions: sessions,
		logger:   logger,
	}
}

// GetHealth reports liveness and database connectivity
func (h *HealthHandler) GetHealth(c *gin.Context) {
	resp := api.HealthResponse{
		Status:   "healthy",
		Database: "not_configured",
		Service:  ServiceName,
		Version:  Version,
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}

	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			h.logger.Error("health check failed: database unreachable", zap.Error(err))
			resp.Status = "unhealthy"
			resp.Database = "disconnected"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "connected"
	}

	c.JSON(http.StatusOK, resp)
}
