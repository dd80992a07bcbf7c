package services

import (
	"context"
	"fmt"

	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/models"
	"github.com/sentinelfi/risk-engine/internal/observability"
)

// ContagionModel is the immutable knowledge base for cross-protocol stress
// transmission: pairwise correlations, directed transmission rates with
// mechanism descriptions, and per-protocol cascade-speed estimates. Built
// once at startup; safe for unsynchronized concurrent reads.
type ContagionModel struct {
	Correlations models.CorrelationMatrix
	Rates        map[models.Protocol]map[models.Protocol]models.ContagionRate
	CascadeSpeed map[models.Protocol]string
}

// DefaultContagionModel returns the curated knowledge base for the three
// monitored protocols. Coefficients and rates reflect shared collateral
// exposure observed across 2022-2023 stress events.
func DefaultContagionModel() *ContagionModel {
	return &ContagionModel{
		Correlations: models.CorrelationMatrix{
			models.ProtocolAave: {
				models.ProtocolAave:     1.0,
				models.ProtocolCompound: 0.85,
				models.ProtocolMaker:    0.70,
			},
			models.ProtocolCompound: {
				models.ProtocolAave:     0.85,
				models.ProtocolCompound: 1.0,
				models.ProtocolMaker:    0.65,
			},
			models.ProtocolMaker: {
				models.ProtocolAave:     0.70,
				models.ProtocolCompound: 0.65,
				models.ProtocolMaker:    1.0,
			},
		},
		Rates: map[models.Protocol]map[models.Protocol]models.ContagionRate{
			models.ProtocolAave: {
				models.ProtocolCompound: {
					Rate:      0.45,
					Mechanism: "shared collateral assets; liquidations on Aave depress prices of collateral also held on Compound",
				},
				models.ProtocolMaker: {
					Rate:      0.35,
					Mechanism: "aToken collateral in Maker vaults; forced unwinds pressure DAI minting capacity",
				},
			},
			models.ProtocolCompound: {
				models.ProtocolAave: {
					Rate:      0.40,
					Mechanism: "overlapping lender base; panic withdrawals migrate across money markets",
				},
				models.ProtocolMaker: {
					Rate:      0.25,
					Mechanism: "cToken collateral exposure and shared stablecoin liquidity pools",
				},
			},
			models.ProtocolMaker: {
				models.ProtocolAave: {
					Rate:      0.50,
					Mechanism: "DAI instability forces repayment of DAI-denominated loans on Aave",
				},
				models.ProtocolCompound: {
					Rate:      0.40,
					Mechanism: "DAI is a major supplied asset on Compound; peg stress drains DAI markets",
				},
			},
		},
		CascadeSpeed: map[models.Protocol]string{
			models.ProtocolAave:     "6-24 hours via liquidation cascades",
			models.ProtocolCompound: "12-48 hours via lender withdrawals",
			models.ProtocolMaker:    "24-72 hours via vault liquidation auctions",
		},
	}
}

// ContagionSimulator runs hypothetical shock scenarios against the current
// protocol metrics using the static knowledge base.
type ContagionSimulator struct {
	model  *ContagionModel
	logger logging.Logger
}

// NewContagionSimulator creates a simulator over the given knowledge base.
// A nil model falls back to the default curated one.
func NewContagionSimulator(model *ContagionModel, logger logging.Logger) *ContagionSimulator {
	if model == nil {
		model = DefaultContagionModel()
	}
	return &ContagionSimulator{
		model:  model,
		logger: logger.WithComponent("contagion_simulator"),
	}
}

// Model exposes the immutable knowledge base for inspection and tests.
func (s *ContagionSimulator) Model() *ContagionModel {
	return s.model
}

// SimulateCascade estimates system-wide losses if triggerName drops by
// dropPercent. An unresolvable trigger yields a zero-valued scenario with
// an empty cascade rather than an error: unknown protocols must not fail
// the scoring cycle.
func (s *ContagionSimulator) SimulateCascade(ctx context.Context, metrics []models.ProtocolMetric, triggerName string, dropPercent float64) models.ContagionScenario {
	_, span := observability.StartSpanWithTags(ctx, observability.SpanOpContagion, "simulate cascade", map[string]string{
		"trigger": triggerName,
	})
	defer observability.FinishSpan(span, nil)

	trigger, ok := models.NormalizeProtocol(triggerName)
	scenario := models.ContagionScenario{
		Trigger:            fmt.Sprintf("%s drops %.0f%%", triggerName, dropPercent),
		TriggerProtocol:    trigger,
		TriggerDropPercent: dropPercent,
		Cascade:            []models.CascadeStep{},
		TimeToContagion:    s.model.CascadeSpeed[trigger],
	}

	var triggerTVL, totalTVL float64
	riskScores := make([]float64, 0, len(metrics))
	found := false
	for _, m := range metrics {
		totalTVL += m.TVLUSD
		riskScores = append(riskScores, m.RiskScore)
		if ok && m.Protocol == trigger {
			triggerTVL = m.TVLUSD
			found = true
		}
	}
	if !ok || !found {
		s.logger.WithOperation("simulate_cascade").Debug("trigger protocol not in snapshot: %s", triggerName)
		return scenario
	}

	triggerLoss := triggerTVL * dropPercent / 100
	totalLoss := triggerLoss

	for _, m := range metrics {
		if m.Protocol == trigger || m.Protocol == "" {
			continue
		}
		rate, known := s.model.Rates[trigger][m.Protocol]
		if !known {
			continue
		}
		impactPercent := dropPercent * rate.Rate
		loss := m.TVLUSD * impactPercent / 100
		totalLoss += loss
		scenario.Cascade = append(scenario.Cascade, models.CascadeStep{
			Protocol:                m.Protocol,
			EstimatedTVLDropPercent: impactPercent,
			EstimatedLossUSD:        loss,
			Mechanism:               rate.Mechanism,
		})
	}

	scenario.TotalSystemLossUSD = totalLoss

	if totalTVL > 0 {
		score := roundScore(100 * totalLoss / totalTVL * 3)
		if triggerTVL/totalTVL > 0.6 {
			score += 15
		}
		if calculateMean(riskScores) > 40 {
			score += 10
		}
		scenario.SystemicRiskScore = clampScore(score)
	}

	return scenario
}

// AnalyzeContagion runs the standard scenario battery for the snapshot:
// a 20% moderate shock per protocol plus a 50% severe shock against the
// largest protocol, and a 30%-shock blast radius per protocol.
func (s *ContagionSimulator) AnalyzeContagion(ctx context.Context, metrics []models.ProtocolMetric) models.ContagionAnalysis {
	ctx, span := observability.StartSpan(ctx, observability.SpanOpContagion, "analyze contagion")
	defer observability.FinishSpan(span, nil)

	analysis := models.ContagionAnalysis{
		CorrelationMatrix: s.model.Correlations,
		Scenarios:         []models.ContagionScenario{},
		BlastRadius:       map[models.Protocol]float64{},
	}

	var largest *models.ProtocolMetric
	for i := range metrics {
		m := &metrics[i]
		if m.Protocol == "" {
			continue
		}
		if largest == nil || m.TVLUSD > largest.TVLUSD {
			largest = m
		}
	}

	for _, m := range metrics {
		if m.Protocol == "" {
			continue
		}
		analysis.Scenarios = append(analysis.Scenarios, s.SimulateCascade(ctx, metrics, string(m.Protocol), 20))
	}
	if largest != nil {
		analysis.Scenarios = append(analysis.Scenarios, s.SimulateCascade(ctx, metrics, string(largest.Protocol), 50))
	}

	for _, m := range metrics {
		if m.Protocol == "" {
			continue
		}
		radius := s.SimulateCascade(ctx, metrics, string(m.Protocol), 30)
		analysis.BlastRadius[m.Protocol] = radius.TotalSystemLossUSD
	}

	if len(analysis.Scenarios) > 0 {
		worst := 0
		scores := make([]float64, 0, len(analysis.Scenarios))
		for _, sc := range analysis.Scenarios {
			scores = append(scores, float64(sc.SystemicRiskScore))
			if sc.SystemicRiskScore > worst {
				worst = sc.SystemicRiskScore
			}
			if sc.TotalSystemLossUSD > analysis.WorstCaseSystemLoss {
				analysis.WorstCaseSystemLoss = sc.TotalSystemLossUSD
			}
		}
		analysis.AggregateContagionRisk = roundScore(0.6*float64(worst) + 0.4*calculateMean(scores))
	}

	s.logger.WithOperation("analyze_contagion").Debug(
		"contagion analysis complete: aggregate=%d worst_loss=%.0f", analysis.AggregateContagionRisk, analysis.WorstCaseSystemLoss)

	return analysis
}
