package api

import (
	"github.com/gin-gonic/gin"

	"github.com/sentinelfi/risk-engine/internal/api/handlers"
	"github.com/sentinelfi/risk-engine/internal/middleware"
)

// Handlers bundles the endpoint handlers for route registration.
type Handlers struct {
	Risk     *handlers.RiskHandler
	Backtest *handlers.BacktestHandler
	Health   *handlers.HealthHandler
	Auth     *middleware.AuthMiddleware
}

// SetupRoutes registers all HTTP routes. Backtest runs are operator-only:
// replaying every curated event on demand is cheap but not free, and the
// endpoint exists for analysis, not public consumption.
func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/health", h.Health.Health)

	v1 := router.Group("/api/v1")
	{
		risk := v1.Group("/risk")
		{
			risk.POST("/evaluate", h.Risk.Evaluate)
			risk.GET("/latest", h.Risk.Latest)
			risk.GET("/history", h.Risk.History)
			risk.GET("/breaker", h.Risk.Breaker)
		}

		backtest := v1.Group("/backtest")
		{
			backtest.GET("/events", h.Backtest.Events)
			backtest.POST("/run", h.Auth.RequireAuth(), h.Backtest.Run)
		}
	}
}
