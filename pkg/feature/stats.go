package feature

import (
	"math"
	"sort"

	"github.com/tunogya/twin/pkg/model"
)

// Quantile returns the p-th quantile (p in [0,1]) of sorted values using linear
// interpolation between closest ranks
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return sorted[lower] + fraction*(sorted[upper]-sorted[lower])
}

// Median returns the median of the present values, NaN if there are none
func Median(values []float64) float64 {
	return Quantile(present(values), 0.5)
}

// present returns the non-missing values, sorted
func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !model.IsMissing(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
