package outliers

import (
	"math"
	"sort"
)

// modifiedZScale is the consistency constant relating MAD to the
// standard deviation of a normal distribution.
const modifiedZScale = 0.6745

// Median returns the median of a sample, 0 for an empty one.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MAD returns the Median Absolute Deviation of a sample: the median of
// the absolute deviations from the sample median. A robust spread
// measure that a single wild value cannot drag around.
func MAD(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	med := Median(values)
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}
	return Median(deviations)
}

// ModifiedZ returns the Modified Z-Score of v against a sample's median
// and MAD. MAD of zero means the sample has no variation: every value
// scores 0, and nothing can be an outlier. Never divides by zero.
func ModifiedZ(v, median, mad float64) float64 {
	if mad == 0 {
		return 0
	}
	return modifiedZScale * (v - median) / mad
}

// expectedRange inverts the Modified Z-Score formula at the given
// threshold, producing the band of unremarkable values. The lower bound
// is clamped at 0 since estimations and task counts cannot go negative.
func expectedRange(median, mad, threshold float64) (lo, hi float64) {
	spread := threshold * mad / modifiedZScale
	lo = median - spread
	if lo < 0 {
		lo = 0
	}
	hi = median + spread
	return lo, hi
}
