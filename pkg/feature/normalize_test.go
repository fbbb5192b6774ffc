package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/twin/pkg/model"
)

func TestQuantile(t *testing.T) {
	sorted := []float64{9, 10, 11, 12, 50}

	tests := []struct {
		name     string
		values   []float64
		p        float64
		expected float64
	}{
		{name: "median", values: sorted, p: 0.5, expected: 11},
		{name: "p99", values: sorted, p: 0.99, expected: 48.48},
		{name: "p01", values: sorted, p: 0.01, expected: 9.04},
		{name: "min", values: sorted, p: 0, expected: 9},
		{name: "max", values: sorted, p: 1, expected: 50},
		{name: "single", values: []float64{4}, p: 0.3, expected: 4},
		{name: "even median", values: []float64{1, 2, 3, 4}, p: 0.5, expected: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Quantile(tt.values, tt.p), 1e-9)
		})
	}

	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, Median([]float64{5, math.NaN(), 1, 3, math.Inf(1)}))
	assert.True(t, math.IsNaN(Median([]float64{math.NaN()})))
}

func matrixWithColumn(col []float64) *Matrix {
	m := &Matrix{}
	for i, v := range col {
		row := model.NewFeatureVector()
		row[model.ColPE] = v
		m.IDs = append(m.IDs, string(rune('A'+i)))
		m.Rows = append(m.Rows, row)
	}
	return m
}

func TestNormalize_ImputeClipScale(t *testing.T) {
	m := matrixWithColumn([]float64{10, 12, 50, 11, 9, math.NaN()})
	stats := NewNormalizer().Normalize(m)

	pe := stats[model.ColPE]
	assert.Equal(t, "pe_ratio", pe.Column)
	assert.Equal(t, 11.0, pe.Median)
	assert.Equal(t, 1, pe.Imputed)
	assert.False(t, pe.Degenerate)

	col := m.Column(model.ColPE)
	// imputed row sits exactly on the median row
	assert.InDelta(t, col[3], col[5], 1e-12)
	// z-scores have zero mean and unit population variance
	var sum, sq float64
	for _, v := range col {
		sum += v
		sq += v * v
	}
	assert.InDelta(t, 0, sum/float64(len(col)), 1e-9)
	assert.InDelta(t, 1, sq/float64(len(col)), 1e-9)
	// outlier was clipped below its raw value before scaling
	assert.Less(t, pe.Upper, 50.0)
	assert.Greater(t, pe.Lower, 9.0)
}

func TestNormalize_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		col  []float64
	}{
		{name: "all missing", col: []float64{math.NaN(), math.NaN(), math.Inf(1)}},
		{name: "constant", col: []float64{4, 4, 4}},
		{name: "constant with gaps", col: []float64{4, math.NaN(), 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := matrixWithColumn(tt.col)
			stats := NewNormalizer().Normalize(m)
			assert.True(t, stats[model.ColPE].Degenerate)
			for _, v := range m.Column(model.ColPE) {
				assert.Equal(t, 0.0, v)
			}
		})
	}
}

func TestNormalize_AllFinite(t *testing.T) {
	m := matrixWithColumn([]float64{1, math.NaN(), math.Inf(-1), 3})
	NewNormalizer().Normalize(m)

	for _, row := range m.Rows {
		for j, v := range row {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "column %d", j)
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	stats := NewNormalizer().Normalize(&Matrix{})
	assert.Len(t, stats, model.NumFeatures)
}
