package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summarize returns mean, median, and 90th percentile of the samples.
// Empty input yields zeros.
func Summarize(samples []float64) (mean, p50, p90 float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return mean, p50, p90
}
