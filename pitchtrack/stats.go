package pitchtrack

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// median computes the sample median. The input is not modified.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
