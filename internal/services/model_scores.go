package services

import (
	"context"

	"github.com/sentinelfi/risk-engine/internal/models"
)

// TVLBands are the per-protocol TVL thresholds for the deterministic
// rule-based score, in USD. Falling below a band earns points; lower bands
// earn more.
type TVLBands struct {
	Caution  float64
	Warning  float64
	Critical float64
}

// RuleModel is the immutable configuration for the rule-based score: TVL
// bands and consensus weights per protocol. Weights sum to 1.
type RuleModel struct {
	Bands   map[models.Protocol]TVLBands
	Weights map[models.Protocol]float64
}

// DefaultRuleModel returns the curated thresholds for the three monitored
// protocols, anchored on their 2022-2023 TVL ranges.
func DefaultRuleModel() *RuleModel {
	return &RuleModel{
		Bands: map[models.Protocol]TVLBands{
			models.ProtocolAave:     {Caution: 6.0e9, Warning: 4.5e9, Critical: 3.0e9},
			models.ProtocolCompound: {Caution: 3.5e9, Warning: 2.5e9, Critical: 1.5e9},
			models.ProtocolMaker:    {Caution: 7.0e9, Warning: 5.0e9, Critical: 3.5e9},
		},
		Weights: map[models.Protocol]float64{
			models.ProtocolAave:     0.50,
			models.ProtocolCompound: 0.25,
			models.ProtocolMaker:    0.25,
		},
	}
}

// ComputeRuleBasedScore produces the deterministic rule-based risk score:
// a TVL-weighted sub-score per protocol plus a uniform reference-price
// adjustment, clamped to [0, 100]. Protocols missing from the snapshot
// contribute nothing.
func (r *RuleModel) ComputeRuleBasedScore(metrics []models.ProtocolMetric, referencePrice float64) int {
	var weighted float64
	for _, m := range metrics {
		if m.Protocol == "" {
			continue
		}
		weight, ok := r.Weights[m.Protocol]
		if !ok {
			continue
		}
		weighted += float64(r.ProtocolSubScore(m.Protocol, m.TVLUSD)) * weight
	}

	switch {
	case referencePrice < 1000:
		weighted += 20
	case referencePrice < 1500:
		weighted += 10
	case referencePrice < 2000:
		weighted += 5
	}

	return roundScore(weighted)
}

// ProtocolSubScore is the standalone rule-based score for one protocol's
// TVL: base 15 plus band penalties.
func (r *RuleModel) ProtocolSubScore(protocol models.Protocol, tvl float64) int {
	bands, ok := r.Bands[protocol]
	if !ok {
		return 0
	}
	score := 15.0
	switch {
	case tvl < bands.Critical:
		score += 40
	case tvl < bands.Warning:
		score += 20
	case tvl < bands.Caution:
		score += 10
	}
	return clampScore(int(score))
}

// ContagionAdjustedScore blends the rule-based score with the aggregate
// contagion risk, 70/30.
func ContagionAdjustedScore(ruleBasedScore, contagionRisk int) int {
	return roundScore(0.7*float64(ruleBasedScore) + 0.3*float64(contagionRisk))
}

// AIScorer produces an external, non-deterministic risk score. The live
// implementation calls an LLM service outside this module; the engine only
// consumes the resulting AIModelScore and must tolerate unavailability.
type AIScorer interface {
	Score(ctx context.Context, metrics []models.ProtocolMetric, referencePrice float64) models.AIModelScore
}

// NoopAIScorer reports the external model as unavailable. The consensus
// aggregator degrades gracefully around it.
type NoopAIScorer struct {
	ModelName string
}

func (n NoopAIScorer) Score(_ context.Context, _ []models.ProtocolMetric, _ float64) models.AIModelScore {
	return models.AIModelScore{
		Model:     n.ModelName,
		Available: false,
	}
}
