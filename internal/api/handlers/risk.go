package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/sentinelfi/risk-engine/internal/cache"
	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/models"
	"github.com/sentinelfi/risk-engine/internal/observability"
	"github.com/sentinelfi/risk-engine/internal/services"
)

// RiskHandler serves the evaluation endpoints.
type RiskHandler struct {
	risk     *services.RiskService
	cache    cache.AssessmentCache
	breaker  *services.OperationsBreaker
	notifier *services.NotificationService
	monitor  *services.PerformanceMonitor
	cacheTTL time.Duration
	logger   logging.Logger
}

// NewRiskHandler creates the risk endpoints handler.
func NewRiskHandler(risk *services.RiskService, assessmentCache cache.AssessmentCache, breaker *services.OperationsBreaker, notifier *services.NotificationService, monitor *services.PerformanceMonitor, cacheTTL time.Duration, logger logging.Logger) *RiskHandler {
	return &RiskHandler{
		risk:     risk,
		cache:    assessmentCache,
		breaker:  breaker,
		notifier: notifier,
		monitor:  monitor,
		cacheTTL: cacheTTL,
		logger:   logger.WithComponent("risk_handler"),
	}
}

// EvaluateResponse wraps an assessment with the breaker's resulting state.
type EvaluateResponse struct {
	Assessment   models.RiskAssessment `json:"assessment"`
	BreakerState string                `json:"breaker_state"`
}

// Evaluate handles POST /api/v1/risk/evaluate.
func (h *RiskHandler) Evaluate(c *gin.Context) {
	var req models.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	referencePrice, _ := req.ReferencePrice.Float64()
	if referencePrice <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference_price must be positive"})
		return
	}
	if len(req.Protocols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one protocol is required"})
		return
	}

	ctx := c.Request.Context()
	start := time.Now()
	assessment := h.risk.EvaluateSnapshot(ctx, req.Metrics(), referencePrice)
	h.monitor.RecordEvaluation(time.Since(start))

	h.breaker.Observe(assessment.Consensus.ConsensusScore)
	if assessment.BreakerTripped {
		observability.CaptureMessage(ctx,
			"circuit breaker threshold exceeded: consensus score "+strconv.Itoa(assessment.Consensus.ConsensusScore),
			sentry.LevelWarning)
	}

	if err := h.cache.SetLatest(ctx, assessment, h.cacheTTL); err != nil {
		// Publishing failure must not fail the evaluation.
		h.logger.WithError(err).Error("failed to publish assessment to cache")
		observability.CaptureExceptionWithContext(ctx, err, "publish_assessment", map[string]interface{}{
			"assessment_id": assessment.ID,
		})
	}
	if err := h.notifier.NotifyAssessment(ctx, assessment); err != nil {
		h.logger.WithError(err).Warn("assessment notification failed")
	}

	c.JSON(http.StatusOK, EvaluateResponse{
		Assessment:   assessment,
		BreakerState: h.breaker.StateName(),
	})
}

// Latest handles GET /api/v1/risk/latest.
func (h *RiskHandler) Latest(c *gin.Context) {
	assessment, err := h.cache.GetLatest(c.Request.Context())
	if errors.Is(err, cache.ErrNoAssessment) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no assessment available"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to read latest assessment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read latest assessment"})
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// History handles GET /api/v1/risk/history.
func (h *RiskHandler) History(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	assessments, err := h.cache.History(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to read assessment history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read assessment history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": assessments, "count": len(assessments)})
}

// Breaker handles GET /api/v1/risk/breaker.
func (h *RiskHandler) Breaker(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":              h.breaker.StateName(),
		"operations_allowed": h.breaker.Allow(),
		"stats":              h.breaker.Stats(),
	})
}
