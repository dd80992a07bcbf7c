package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlertLevelForScore(t *testing.T) {
	tests := []struct {
		score    int
		expected AlertLevel
	}{
		{0, AlertNone},
		{40, AlertNone},
		{41, AlertWatch},
		{60, AlertWatch},
		{61, AlertWarning},
		{80, AlertWarning},
		{81, AlertCritical},
		{100, AlertCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, AlertLevelForScore(tt.score), "score %d", tt.score)
	}
}

func TestDepegSeverityOrdering(t *testing.T) {
	assert.True(t, DepegCritical.MoreSevereThan(DepegWarning))
	assert.True(t, DepegWarning.MoreSevereThan(DepegWatch))
	assert.True(t, DepegCritical.MoreSevereThan(DepegWatch))
	assert.False(t, DepegWatch.MoreSevereThan(DepegCritical))
	assert.False(t, DepegWarning.MoreSevereThan(DepegWarning))
}

func TestStablecoinMechanismMultipliers(t *testing.T) {
	assert.Equal(t, 2.0, MechanismAlgorithmic.RiskMultiplier())
	assert.Equal(t, 1.5, MechanismCryptoBacked.RiskMultiplier())
	assert.Equal(t, 1.0, MechanismFiatBacked.RiskMultiplier())
}

func TestCorrelationMatrixCoefficient(t *testing.T) {
	m := CorrelationMatrix{
		ProtocolAave: {ProtocolCompound: 0.85},
	}

	assert.Equal(t, 0.85, m.Coefficient(ProtocolAave, ProtocolCompound))
	assert.Equal(t, 0.0, m.Coefficient(ProtocolCompound, ProtocolAave))
	assert.Equal(t, 0.0, m.Coefficient(ProtocolMaker, ProtocolMaker))
}
