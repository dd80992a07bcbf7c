package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelfi/risk-engine/internal/cache"
	"github.com/sentinelfi/risk-engine/internal/config"
	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/services"
)

func newTestRiskHandler(t *testing.T) *RiskHandler {
	t.Helper()
	logger := logging.NewStandardLogger("error", "test")

	contagion := services.NewContagionSimulator(nil, logger)
	depeg := services.NewDepegMonitor(logger)
	consensus := services.NewConsensusAggregator(logger)
	risk := services.NewRiskService(contagion, depeg, consensus, services.DefaultRuleModel(), nil, logger)

	return NewRiskHandler(
		risk,
		cache.NewMemoryAssessmentCache(),
		services.NewOperationsBreaker(3, logger),
		services.NewNotificationService(config.TelegramConfig{}, logger),
		services.NewPerformanceMonitor(logger),
		5*time.Minute,
		logger,
	)
}

func setupRiskRouter(h *RiskHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/evaluate", h.Evaluate)
	router.GET("/latest", h.Latest)
	router.GET("/history", h.History)
	router.GET("/breaker", h.Breaker)
	return router
}

func evaluateBody() []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"protocols": []map[string]interface{}{
			{"name": "Aave", "tvl_usd": 7.5e9},
			{"name": "Compound", "tvl_usd": 4.5e9},
			{"name": "MakerDAO", "tvl_usd": 10.0e9},
		},
		"reference_price": 1700,
	})
	return body
}

func TestEvaluate_ReturnsAssessment(t *testing.T) {
	router := setupRiskRouter(newTestRiskHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewReader(evaluateBody()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Assessment.ID)
	assert.GreaterOrEqual(t, resp.Assessment.Consensus.ConsensusScore, 0)
	assert.LessOrEqual(t, resp.Assessment.Consensus.ConsensusScore, 100)
	assert.Equal(t, "closed", resp.BreakerState)
}

func TestEvaluate_RejectsMissingBody(t *testing.T) {
	router := setupRiskRouter(newTestRiskHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluate_RejectsNonPositiveReferencePrice(t *testing.T) {
	router := setupRiskRouter(newTestRiskHandler(t))

	body, _ := json.Marshal(map[string]interface{}{
		"protocols":       []map[string]interface{}{{"name": "Aave", "tvl_usd": 7.5e9}},
		"reference_price": -100,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatest_NotFoundBeforeFirstEvaluation(t *testing.T) {
	router := setupRiskRouter(newTestRiskHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/latest", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLatest_ReturnsPublishedAssessment(t *testing.T) {
	router := setupRiskRouter(newTestRiskHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewReader(evaluateBody()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/latest", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "consensus_score")
}

func TestHistory_RejectsBadLimit(t *testing.T) {
	router := setupRiskRouter(newTestRiskHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/history?limit=abc", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBreaker_ReportsState(t *testing.T) {
	router := setupRiskRouter(newTestRiskHandler(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/breaker", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"closed"`)
	assert.Contains(t, w.Body.String(), `"operations_allowed":true`)
}
