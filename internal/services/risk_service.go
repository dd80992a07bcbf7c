package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/models"
	"github.com/sentinelfi/risk-engine/internal/observability"
)

// Model names used in consensus breakdowns.
const (
	ModelRuleBased         = "rule-based"
	ModelContagionAdjusted = "contagion-adjusted"
)

// Deterministic models carry fixed confidences: the rule-based score is
// well calibrated against the TVL bands, the contagion adjustment layers
// scenario estimates on top of it.
const (
	ruleBasedConfidence         = 0.85
	contagionAdjustedConfidence = 0.75
)

// RiskService orchestrates one full evaluation cycle: contagion and depeg
// analyses feed derived model scores, the consensus aggregator combines
// them with the external AI score.
type RiskService struct {
	contagion *ContagionSimulator
	depeg     *DepegMonitor
	consensus *ConsensusAggregator
	rules     *RuleModel
	aiScorer  AIScorer
	logger    logging.Logger
}

// NewRiskService wires the scoring pipeline. A nil aiScorer disables the
// external model; nil rules fall back to the curated defaults.
func NewRiskService(contagion *ContagionSimulator, depeg *DepegMonitor, consensus *ConsensusAggregator, rules *RuleModel, aiScorer AIScorer, logger logging.Logger) *RiskService {
	if rules == nil {
		rules = DefaultRuleModel()
	}
	return &RiskService{
		contagion: contagion,
		depeg:     depeg,
		consensus: consensus,
		rules:     rules,
		aiScorer:  aiScorer,
		logger:    logger.WithComponent("risk_service"),
	}
}

// Rules exposes the rule-based scoring configuration.
func (s *RiskService) Rules() *RuleModel {
	return s.rules
}

// EvaluateSnapshot runs the full pipeline over one snapshot and returns a
// complete assessment. It never returns an error: degenerate inputs are
// clamped and missing upstream models degrade the consensus method, so a
// bounded score always exists for downstream consumers.
func (s *RiskService) EvaluateSnapshot(ctx context.Context, metrics []models.ProtocolMetric, referencePrice float64) models.RiskAssessment {
	ctx, span := observability.StartSpan(ctx, observability.SpanOpEvaluate, "evaluate snapshot")
	defer observability.FinishSpan(span, nil)
	defer observability.RecoverAndCapture(ctx, "evaluate_snapshot")

	if referencePrice < 0 {
		referencePrice = 0
	}

	metrics = s.withBaselineRisk(metrics)

	tvls := make(map[models.Protocol]float64, len(metrics))
	for _, m := range metrics {
		if m.Protocol != "" {
			tvls[m.Protocol] = m.TVLUSD
		}
	}

	contagion := s.contagion.AnalyzeContagion(ctx, metrics)
	observability.AddBreadcrumb(ctx, "risk",
		fmt.Sprintf("contagion risk %d/100, worst-case loss $%.2fB",
			contagion.AggregateContagionRisk, contagion.WorstCaseSystemLoss/1e9),
		sentry.LevelInfo)

	stablecoins := s.depeg.EstimateStablecoinPrices(referencePrice, tvls)
	depeg := s.depeg.AnalyzeDepegRisk(ctx, stablecoins)
	observability.AddBreadcrumb(ctx, "risk",
		fmt.Sprintf("depeg risk %d/100, %d alerts", depeg.DepegRiskScore, len(depeg.Alerts)),
		sentry.LevelInfo)

	ruleScore := s.rules.ComputeRuleBasedScore(metrics, referencePrice)
	adjustedScore := ContagionAdjustedScore(ruleScore, contagion.AggregateContagionRisk)

	modelScores := make([]models.AIModelScore, 0, 3)
	if s.aiScorer != nil {
		aiCtx, aiSpan := observability.TraceExternalAPI(ctx, "ai-scorer", "score")
		aiScore := s.aiScorer.Score(aiCtx, metrics, referencePrice)
		observability.FinishSpan(aiSpan, nil)
		modelScores = append(modelScores, aiScore)
	}
	modelScores = append(modelScores,
		models.AIModelScore{
			Model:      ModelRuleBased,
			Score:      float64(ruleScore),
			Confidence: ruleBasedConfidence,
			Available:  true,
		},
		models.AIModelScore{
			Model:      ModelContagionAdjusted,
			Score:      float64(adjustedScore),
			Confidence: contagionAdjustedConfidence,
			Available:  true,
		},
	)

	consensus := s.consensus.ComputeConsensus(ctx, modelScores)
	alertLevel := models.AlertLevelForScore(consensus.ConsensusScore)

	assessment := models.RiskAssessment{
		ID:             uuid.New().String(),
		EvaluatedAt:    time.Now().UTC().Format(time.RFC3339),
		Consensus:      consensus,
		Contagion:      contagion,
		Depeg:          depeg,
		AlertLevel:     alertLevel,
		BreakerTripped: consensus.ConsensusScore > models.CriticalThreshold,
	}
	assessment.Summary = renderSummary(assessment)

	s.logger.LogAssessment(consensus.ConsensusScore, string(alertLevel), string(consensus.Method))

	return assessment
}

// withBaselineRisk fills in missing per-protocol risk scores from the TVL
// bands, so callers who omit the field still feed the cascade's mean-risk
// weighting. The input slice is not mutated.
func (s *RiskService) withBaselineRisk(metrics []models.ProtocolMetric) []models.ProtocolMetric {
	out := make([]models.ProtocolMetric, len(metrics))
	copy(out, metrics)
	for i := range out {
		if out[i].RiskScore == 0 && out[i].Protocol != "" {
			out[i].RiskScore = float64(s.rules.ProtocolSubScore(out[i].Protocol, out[i].TVLUSD))
		}
	}
	return out
}

// renderSummary produces the human-readable assessment line. USD figures
// render in billions with 2 decimals, percentages with 2 decimals.
func renderSummary(a models.RiskAssessment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Systemic risk %d/100 (%s, confidence %d%%, method %s).",
		a.Consensus.ConsensusScore, a.AlertLevel, a.Consensus.ConfidenceLevel, a.Consensus.Method)
	fmt.Fprintf(&b, " Worst-case system loss $%.2fB across %d scenarios; aggregate contagion risk %d/100.",
		a.Contagion.WorstCaseSystemLoss/1e9, len(a.Contagion.Scenarios), a.Contagion.AggregateContagionRisk)

	if a.Depeg.WorstDepeg != "" && a.Depeg.AvgDeviation > 0 {
		fmt.Fprintf(&b, " Depeg risk %d/100, worst %s, avg deviation %.2f%%.",
			a.Depeg.DepegRiskScore, a.Depeg.WorstDepeg, a.Depeg.AvgDeviation)
	} else {
		fmt.Fprintf(&b, " Depeg risk %d/100.", a.Depeg.DepegRiskScore)
	}

	if len(a.Consensus.Outliers) > 0 {
		fmt.Fprintf(&b, " Outlier models: %s.", strings.Join(a.Consensus.Outliers, ", "))
	}
	if a.BreakerTripped {
		b.WriteString(" Circuit breaker threshold exceeded.")
	}

	return b.String()
}
