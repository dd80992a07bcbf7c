package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentinelfi/risk-engine/internal/models"
)

func testMetrics() []models.ProtocolMetric {
	return []models.ProtocolMetric{
		{Name: "Aave", Protocol: models.ProtocolAave, TVLUSD: 7.5e9, RiskScore: 25},
		{Name: "Compound", Protocol: models.ProtocolCompound, TVLUSD: 4.5e9, RiskScore: 25},
		{Name: "MakerDAO", Protocol: models.ProtocolMaker, TVLUSD: 10.0e9, RiskScore: 25},
	}
}

func TestDefaultContagionModel_MatrixSymmetricWithUnitDiagonal(t *testing.T) {
	model := DefaultContagionModel()

	for _, a := range models.AllProtocols() {
		assert.Equal(t, 1.0, model.Correlations.Coefficient(a, a))
		for _, b := range models.AllProtocols() {
			coeff := model.Correlations.Coefficient(a, b)
			assert.Equal(t, coeff, model.Correlations.Coefficient(b, a))
			assert.GreaterOrEqual(t, coeff, -1.0)
			assert.LessOrEqual(t, coeff, 1.0)
		}
	}
}

func TestDefaultContagionModel_RatesInRange(t *testing.T) {
	model := DefaultContagionModel()

	for source, targets := range model.Rates {
		for target, rate := range targets {
			assert.NotEqual(t, source, target)
			assert.GreaterOrEqual(t, rate.Rate, 0.0)
			assert.LessOrEqual(t, rate.Rate, 1.0)
			assert.NotEmpty(t, rate.Mechanism)
		}
	}
}

func TestSimulateCascade_UnknownTrigger(t *testing.T) {
	sim := NewContagionSimulator(nil, newTestLogger())

	scenario := sim.SimulateCascade(context.Background(), testMetrics(), "UnknownProtocol", 50)

	assert.Equal(t, 0, scenario.SystemicRiskScore)
	assert.Empty(t, scenario.Cascade)
	assert.Equal(t, 0.0, scenario.TotalSystemLossUSD)
}

func TestSimulateCascade_TriggerNotInSnapshot(t *testing.T) {
	sim := NewContagionSimulator(nil, newTestLogger())
	metrics := testMetrics()[:2] // Maker absent

	scenario := sim.SimulateCascade(context.Background(), metrics, "MakerDAO", 50)

	assert.Equal(t, 0, scenario.SystemicRiskScore)
	assert.Empty(t, scenario.Cascade)
}

func TestSimulateCascade_PropagatesToOthers(t *testing.T) {
	sim := NewContagionSimulator(nil, newTestLogger())

	scenario := sim.SimulateCascade(context.Background(), testMetrics(), "Aave", 20)

	assert.Equal(t, models.ProtocolAave, scenario.TriggerProtocol)
	assert.Len(t, scenario.Cascade, 2)
	assert.NotEmpty(t, scenario.TimeToContagion)

	// Trigger loss alone is 7.5e9 * 0.2 = 1.5e9; cascades add more.
	assert.Greater(t, scenario.TotalSystemLossUSD, 1.5e9)
	for _, step := range scenario.Cascade {
		assert.Greater(t, step.EstimatedLossUSD, 0.0)
		assert.Less(t, step.EstimatedTVLDropPercent, 20.0)
		assert.NotEmpty(t, step.Mechanism)
	}
}

func TestSimulateCascade_FuzzyTriggerNames(t *testing.T) {
	sim := NewContagionSimulator(nil, newTestLogger())

	for _, name := range []string{"aave", "Aave V3", "AAVE"} {
		scenario := sim.SimulateCascade(context.Background(), testMetrics(), name, 20)
		assert.Equal(t, models.ProtocolAave, scenario.TriggerProtocol, "name %q", name)
		assert.NotEmpty(t, scenario.Cascade)
	}
}

func TestSimulateCascade_DominantTriggerBoost(t *testing.T) {
	sim := NewContagionSimulator(nil, newTestLogger())

	dominant := []models.ProtocolMetric{
		{Name: "Aave", Protocol: models.ProtocolAave, TVLUSD: 20e9, RiskScore: 10},
		{Name: "Compound", Protocol: models.ProtocolCompound, TVLUSD: 2e9, RiskScore: 10},
		{Name: "MakerDAO", Protocol: models.ProtocolMaker, TVLUSD: 2e9, RiskScore: 10},
	}
	balanced := []models.ProtocolMetric{
		{Name: "Aave", Protocol: models.ProtocolAave, TVLUSD: 8e9, RiskScore: 10},
		{Name: "Compound", Protocol: models.ProtocolCompound, TVLUSD: 8e9, RiskScore: 10},
		{Name: "MakerDAO", Protocol: models.ProtocolMaker, TVLUSD: 8e9, RiskScore: 10},
	}

	withBoost := sim.SimulateCascade(context.Background(), dominant, "Aave", 20)
	without := sim.SimulateCascade(context.Background(), balanced, "Aave", 20)

	// Aave holds >60% of the dominant system, earning the concentration boost.
	assert.Greater(t, withBoost.SystemicRiskScore, without.SystemicRiskScore)
}

func TestSimulateCascade_ZeroTotalTVL(t *testing.T) {
	sim := NewContagionSimulator(nil, newTestLogger())
	metrics := []models.ProtocolMetric{
		{Name: "Aave", Protocol: models.ProtocolAave, TVLUSD: 0},
		{Name: "Compound", Protocol: models.ProtocolCompound, TVLUSD: 0},
	}

	scenario := sim.SimulateCascade(context.Background(), metrics, "Aave", 50)

	assert.Equal(t, 0, scenario.SystemicRiskScore)
}

func TestAnalyzeContagion_BlastRadiusCoversAllProtocols(t *testing.T) {
	sim := NewContagionSimulator(nil, newTestLogger())

	analysis := sim.AnalyzeContagion(context.Background(), testMetrics())

	assert.Len(t, analysis.BlastRadius, 3)
	for _, p := range models.AllProtocols() {
		radius, ok := analysis.BlastRadius[p]
		assert.True(t, ok, "blast radius missing for %s", p)
		assert.Greater(t, radius, 0.0)
	}
}

func TestAnalyzeContagion_ScenarioBattery(t *testing.T) {
	sim := NewContagionSimulator(nil, newTestLogger())

	analysis := sim.AnalyzeContagion(context.Background(), testMetrics())

	// One 20% scenario per protocol plus the 50% severe one on the largest.
	assert.Len(t, analysis.Scenarios, 4)
	severe := analysis.Scenarios[len(analysis.Scenarios)-1]
	assert.Equal(t, models.ProtocolMaker, severe.TriggerProtocol)
	assert.Equal(t, 50.0, severe.TriggerDropPercent)

	assert.GreaterOrEqual(t, analysis.AggregateContagionRisk, 0)
	assert.LessOrEqual(t, analysis.AggregateContagionRisk, 100)
	assert.Greater(t, analysis.WorstCaseSystemLoss, 0.0)
}

func TestAnalyzeContagion_EmptyInput(t *testing.T) {
	sim := NewContagionSimulator(nil, newTestLogger())

	analysis := sim.AnalyzeContagion(context.Background(), nil)

	assert.Empty(t, analysis.Scenarios)
	assert.Empty(t, analysis.BlastRadius)
	assert.Equal(t, 0, analysis.AggregateContagionRisk)
}
