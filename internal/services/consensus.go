package services

import (
	"context"
	"math"

	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/models"
	"github.com/sentinelfi/risk-engine/internal/observability"
)

// outlierSigmaThreshold flags a model whose score sits more than this many
// standard deviations away from the median of all scores.
const outlierSigmaThreshold = 1.5

// ConsensusAggregator combines independent per-model risk scores into one
// consensus score with an agreement metric and outlier flags.
type ConsensusAggregator struct {
	logger logging.Logger
}

// NewConsensusAggregator creates a consensus aggregator.
func NewConsensusAggregator(logger logging.Logger) *ConsensusAggregator {
	return &ConsensusAggregator{
		logger: logger.WithComponent("consensus_aggregator"),
	}
}

// ComputeConsensus aggregates the available model scores.
//
// Degradation policy: zero available models yields a neutral {50, 0,
// fallback-only} rather than an error, because downstream circuit breakers
// require a bounded score every cycle. Absence of signal is risk-neutral,
// not risk-free.
func (c *ConsensusAggregator) ComputeConsensus(ctx context.Context, modelScores []models.AIModelScore) models.ConsensusResult {
	_, span := observability.StartSpan(ctx, observability.SpanOpConsensus, "compute consensus")
	defer observability.FinishSpan(span, nil)

	available := make([]models.AIModelScore, 0, len(modelScores))
	for _, s := range modelScores {
		if s.Available {
			available = append(available, s)
		}
	}

	result := models.ConsensusResult{
		Scores:   modelScores,
		Outliers: []string{},
	}

	switch len(available) {
	case 0:
		result.ConsensusScore = 50
		result.ConfidenceLevel = 0
		result.Method = models.MethodFallbackOnly
		c.logger.WithOperation("compute_consensus").Warn("no models available, degrading to neutral score")
		return result
	case 1:
		result.ConsensusScore = roundScore(available[0].Score)
		result.ConfidenceLevel = clampScore(int(math.Round(available[0].Confidence * 100)))
		result.Method = models.MethodSingleModel
		return result
	}

	values := make([]float64, len(available))
	minScore, maxScore := available[0].Score, available[0].Score
	for i, s := range available {
		values[i] = s.Score
		if s.Score < minScore {
			minScore = s.Score
		}
		if s.Score > maxScore {
			maxScore = s.Score
		}
	}
	result.Spread = maxScore - minScore

	outlierIdx := c.flagOutliers(values)
	for _, i := range outlierIdx {
		result.Outliers = append(result.Outliers, available[i].Model)
	}

	inliers := make([]float64, 0, len(available))
	weights := make([]float64, 0, len(available))
	outlierSet := make(map[int]bool, len(outlierIdx))
	for _, i := range outlierIdx {
		outlierSet[i] = true
	}
	for i, s := range available {
		if outlierSet[i] {
			continue
		}
		inliers = append(inliers, s.Score)
		weights = append(weights, s.Confidence)
	}
	if len(inliers) == 0 {
		// Every model flagged; fall back to an unweighted median of all.
		inliers = values
		weights = nil
	}

	result.ConsensusScore = roundScore(weightedMedian(inliers, weights))
	result.ConfidenceLevel = confidenceFromSpread(result.Spread, len(result.Outliers))
	result.Method = models.MethodMultiAI

	c.logger.WithOperation("compute_consensus").Debug(
		"consensus: score=%d confidence=%d spread=%.1f outliers=%d",
		result.ConsensusScore, result.ConfidenceLevel, result.Spread, len(result.Outliers))

	return result
}

// flagOutliers returns the indices of scores that sit more than 1.5
// standard deviations from the MEDIAN of all scores. The median is used
// as the center instead of the mean because a single extreme value drags
// the mean toward itself and can hide its own deviation; with fewer than
// three scores there is no population to judge against and nothing is
// flagged.
func (c *ConsensusAggregator) flagOutliers(values []float64) []int {
	if len(values) < 3 {
		return nil
	}
	center := median(values)
	stddev := calculateStdDev(values)
	if stddev == 0 {
		return nil
	}
	var outliers []int
	for i, v := range values {
		if math.Abs(v-center) > outlierSigmaThreshold*stddev {
			outliers = append(outliers, i)
		}
	}
	return outliers
}

// confidenceFromSpread maps model disagreement onto a 0-100 confidence
// band, with a 10-point penalty per flagged outlier.
func confidenceFromSpread(spread float64, outlierCount int) int {
	var confidence float64
	switch {
	case spread == 0:
		confidence = 100
	case spread <= 5:
		confidence = 95
	case spread <= 10:
		confidence = 85
	case spread <= 20:
		confidence = 70
	case spread <= 30:
		confidence = 50
	default:
		confidence = math.Max(20, 100-2*spread)
	}
	confidence -= float64(10 * outlierCount)
	return clampScore(int(math.Round(confidence)))
}
