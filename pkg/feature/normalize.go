package feature

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tunogya/twin/pkg/model"
)

// ColumnStats records the statistics one normalization pass derived for a column
type ColumnStats struct {
	Column     string
	Median     float64
	Lower      float64 // clip floor
	Upper      float64 // clip ceiling
	Mean       float64
	Std        float64 // population standard deviation after clipping
	Imputed    int     // number of values replaced by the median
	Degenerate bool    // all values missing or zero variance
}

// Normalizer applies robust standardization across the current universe.
// It carries no state between calls.
type Normalizer struct {
	LowerQuantile float64 // clip floor quantile (default 0.01)
	UpperQuantile float64 // clip ceiling quantile (default 0.99)
}

// NewNormalizer creates a normalizer clipping to the [1st, 99th] percentile
func NewNormalizer() *Normalizer {
	return &Normalizer{
		LowerQuantile: 0.01,
		UpperQuantile: 0.99,
	}
}

// Normalize standardizes every column of m in place and returns the per-column statistics.
// After it returns every value in m is finite.
func (n *Normalizer) Normalize(m *Matrix) []ColumnStats {
	stats := make([]ColumnStats, model.NumFeatures)
	if m.Len() == 0 {
		return stats
	}

	for j := 0; j < model.NumFeatures; j++ {
		col := m.Column(j)
		stats[j] = n.normalizeColumn(col)
		stats[j].Column = model.Features[j].Column
		m.SetColumn(j, col)
	}

	return stats
}

// normalizeColumn runs impute -> clip -> z-score on one column in place
func (n *Normalizer) normalizeColumn(col []float64) ColumnStats {
	var cs ColumnStats

	// Infinities count as missing
	for i, v := range col {
		if math.IsInf(v, 0) {
			col[i] = math.NaN()
		}
	}

	sorted := present(col)
	if len(sorted) == 0 {
		// Nothing to learn from; the column carries no information
		for i := range col {
			col[i] = 0
		}
		cs.Imputed = len(col)
		cs.Degenerate = true
		return cs
	}

	cs.Median = Quantile(sorted, 0.5)
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = cs.Median
			cs.Imputed++
		}
	}

	// Quantiles are taken after imputation, over the full universe
	sorted = append(sorted[:0], col...)
	sort.Float64s(sorted)
	cs.Lower = Quantile(sorted, n.LowerQuantile)
	cs.Upper = Quantile(sorted, n.UpperQuantile)
	for i, v := range col {
		col[i] = clip(v, cs.Lower, cs.Upper)
	}

	cs.Mean, cs.Std = stat.PopMeanStdDev(col, nil)
	scale := cs.Std
	if scale == 0 || math.IsNaN(scale) {
		scale = 1
		cs.Degenerate = true
	}
	for i, v := range col {
		col[i] = (v - cs.Mean) / scale
	}

	return cs
}

func clip(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
