package services

import (
	"math"
	"sort"
)

// calculateMean computes the arithmetic mean of a float64 slice.
// Returns 0 for empty input.
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateStdDev computes the population standard deviation.
// Returns 0 for fewer than two values.
func calculateStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := calculateMean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

// median computes the plain median of a float64 slice.
// Returns 0 for empty input.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// weightedMedian returns the value at which cumulative weight first reaches
// half the total, over values sorted ascending. A nil weights slice means
// equal weights; explicit weights are honored as given, with negatives
// counting as zero, so a zero-weight value is only returned by exhaustion.
func weightedMedian(values []float64, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}

	type weighted struct {
		value  float64
		weight float64
	}
	items := make([]weighted, len(values))
	totalWeight := 0.0
	for i, v := range values {
		w := 1.0
		if weights != nil {
			w = 0
			if i < len(weights) && weights[i] > 0 {
				w = weights[i]
			}
		}
		items[i] = weighted{value: v, weight: w}
		totalWeight += w
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].value < items[j].value
	})

	half := totalWeight / 2
	cumulative := 0.0
	for _, item := range items {
		cumulative += item.weight
		if cumulative > 0 && cumulative >= half {
			return item.value
		}
	}
	return items[len(items)-1].value
}

// clampScore bounds an integer risk score to [0, 100].
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// roundScore rounds a float score half away from zero and clamps to [0, 100].
func roundScore(score float64) int {
	return clampScore(int(math.Round(score)))
}
