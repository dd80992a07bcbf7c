package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelfi/risk-engine/internal/config"
	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/models"
	"github.com/sentinelfi/risk-engine/internal/services"
)

func newTestBacktestHandler(t *testing.T) *BacktestHandler {
	t.Helper()
	logger := logging.NewStandardLogger("error", "test")

	backtester := services.NewBacktester(
		services.NewContagionSimulator(nil, logger),
		services.NewDepegMonitor(logger),
		services.DefaultRuleModel(),
		config.DefaultBacktestConfig(),
		logger,
	)
	return NewBacktestHandler(backtester, logger)
}

func setupBacktestRouter(h *BacktestHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/run", h.Run)
	router.GET("/events", h.Events)
	return router
}

func TestBacktestRun_SingleEvent(t *testing.T) {
	router := setupBacktestRouter(newTestBacktestHandler(t))

	body, _ := json.Marshal(models.BacktestRequest{EventSlug: "terra-ust-2022"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result models.BacktestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "terra-ust-2022", result.EventSlug)
	assert.NotEmpty(t, result.Days)
}

func TestBacktestRun_AllEventsWhenSlugOmitted(t *testing.T) {
	router := setupBacktestRouter(newTestBacktestHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var report models.BacktestReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Len(t, report.Results, 4)
}

func TestBacktestRun_UnknownSlug(t *testing.T) {
	router := setupBacktestRouter(newTestBacktestHandler(t))

	body, _ := json.Marshal(models.BacktestRequest{EventSlug: "no-such-event"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no-such-event")
}

func TestBacktestEvents_ListsCuratedDatasets(t *testing.T) {
	router := setupBacktestRouter(newTestBacktestHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Events []struct {
			Slug         string `json:"slug"`
			SnapshotDays int    `json:"snapshot_days"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 4)

	slugs := make([]string, 0, len(resp.Events))
	for _, e := range resp.Events {
		slugs = append(slugs, e.Slug)
		assert.Positive(t, e.SnapshotDays)
	}
	assert.Contains(t, slugs, "terra-ust-2022")
	assert.Contains(t, slugs, "usdc-svb-2023")
	// Snapshot bodies stay out of the listing.
	assert.NotContains(t, w.Body.String(), "stablecoin_prices")
}
