package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/models"
	"github.com/sentinelfi/risk-engine/internal/services"
)

// BacktestHandler serves the historical replay endpoints.
type BacktestHandler struct {
	backtester *services.Backtester
	logger     logging.Logger
}

// NewBacktestHandler creates the backtest endpoints handler.
func NewBacktestHandler(backtester *services.Backtester, logger logging.Logger) *BacktestHandler {
	return &BacktestHandler{
		backtester: backtester,
		logger:     logger.WithComponent("backtest_handler"),
	}
}

// Run handles POST /api/v1/backtest/run. An empty or absent event_slug
// replays every curated event.
func (h *BacktestHandler) Run(c *gin.Context) {
	var req models.BacktestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	if req.EventSlug == "" {
		c.JSON(http.StatusOK, h.backtester.RunAllBacktests(ctx))
		return
	}

	result, err := h.backtester.RunBacktest(ctx, req.EventSlug)
	var unknown services.ErrUnknownEvent
	if errors.As(err, &unknown) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("backtest run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backtest run failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Events handles GET /api/v1/backtest/events, listing the curated
// datasets without their snapshot bodies.
func (h *BacktestHandler) Events(c *gin.Context) {
	type eventSummary struct {
		Slug          string  `json:"slug"`
		Name          string  `json:"name"`
		Description   string  `json:"description"`
		EventDate     string  `json:"event_date"`
		ActualLossUSD float64 `json:"actual_loss_usd"`
		SnapshotDays  int     `json:"snapshot_days"`
	}

	events := h.backtester.Events()
	summaries := make([]eventSummary, 0, len(events))
	for _, e := range events {
		summaries = append(summaries, eventSummary{
			Slug:          e.Slug,
			Name:          e.Name,
			Description:   e.Description,
			EventDate:     e.EventDate.Format("2006-01-02"),
			ActualLossUSD: e.ActualLossUSD,
			SnapshotDays:  len(e.Snapshots),
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": summaries})
}
