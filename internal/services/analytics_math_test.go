package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentinelfi/risk-engine/internal/logging"
)

func newTestLogger() logging.Logger {
	return logging.NewStandardLogger("error", "test")
}

func TestCalculateMean(t *testing.T) {
	assert.Equal(t, 0.0, calculateMean(nil))
	assert.Equal(t, 5.0, calculateMean([]float64{5}))
	assert.Equal(t, 20.0, calculateMean([]float64{10, 20, 30}))
}

func TestCalculateStdDev(t *testing.T) {
	assert.Equal(t, 0.0, calculateStdDev(nil))
	assert.Equal(t, 0.0, calculateStdDev([]float64{42}))

	// Population stddev of {2, 4, 4, 4, 5, 5, 7, 9} is exactly 2.
	assert.InDelta(t, 2.0, calculateStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 12.0, median([]float64{95, 10, 12}))
	assert.Equal(t, 15.0, median([]float64{10, 20}))
}

func TestWeightedMedian_SingleElement(t *testing.T) {
	// A single element is the median regardless of its weight.
	assert.Equal(t, 73.0, weightedMedian([]float64{73}, []float64{0.01}))
	assert.Equal(t, 73.0, weightedMedian([]float64{73}, nil))
}

func TestWeightedMedian_WeightsShiftCenter(t *testing.T) {
	// Equal weights: cumulative reaches half the total at the middle value.
	assert.Equal(t, 50.0, weightedMedian([]float64{10, 50, 90}, []float64{1, 1, 1}))

	// A dominant weight on the low value pulls the median down.
	assert.Equal(t, 10.0, weightedMedian([]float64{10, 50, 90}, []float64{10, 1, 1}))
}

func TestWeightedMedian_ZeroWeightNeverDominates(t *testing.T) {
	// Half the total weight (0.25) is first reached at 90; the untrusted
	// value must not inherit a default weight.
	assert.Equal(t, 90.0, weightedMedian([]float64{10, 90}, []float64{0, 0.5}))
	assert.Equal(t, 50.0, weightedMedian([]float64{10, 50, 90}, []float64{0, 1, 1}))

	// All weights zero: nothing can reach the half, fall through to the
	// largest value.
	assert.Equal(t, 90.0, weightedMedian([]float64{10, 90}, []float64{0, 0}))
}

func TestWeightedMedian_Empty(t *testing.T) {
	assert.Equal(t, 0.0, weightedMedian(nil, nil))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-5))
	assert.Equal(t, 100, clampScore(150))
	assert.Equal(t, 42, clampScore(42))
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 43, roundScore(42.5))
	assert.Equal(t, 42, roundScore(42.4))
	assert.Equal(t, 100, roundScore(240.0))
	assert.Equal(t, 0, roundScore(-1.2))
}
