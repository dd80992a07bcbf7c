package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/sentinelfi/risk-engine/internal/services"
)

// HealthResponse reports service liveness and dependency status.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Services  map[string]string      `json:"services"`
	System    services.SystemMetrics `json:"system"`
}

// HealthHandler serves the health endpoint. A nil redis client means the
// in-memory cache fallback is active.
type HealthHandler struct {
	redis   redis.Cmdable
	monitor *services.PerformanceMonitor
	version string
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(redisClient redis.Cmdable, monitor *services.PerformanceMonitor, version string) *HealthHandler {
	return &HealthHandler{
		redis:   redisClient,
		monitor: monitor,
		version: version,
	}
}

// Health handles GET /health. Degraded dependencies report as such but do
// not fail the endpoint; the scoring core has no external dependencies.
func (h *HealthHandler) Health(c *gin.Context) {
	deps := map[string]string{}

	if h.redis == nil {
		deps["redis"] = "disabled (in-memory fallback)"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx).Err(); err != nil {
			deps["redis"] = "unreachable"
		} else {
			deps["redis"] = "ok"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Services:  deps,
		System:    h.monitor.Snapshot(),
	})
}
