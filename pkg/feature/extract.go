package feature

import (
	"math"

	"github.com/tunogya/twin/pkg/model"
)

// Matrix holds one engineered vector per instrument, rows in universe order
type Matrix struct {
	IDs  []string
	Rows []model.FeatureVector
}

// Len returns the number of instruments
func (m *Matrix) Len() int {
	return len(m.Rows)
}

// Index returns the row of the instrument with the given id, or -1
func (m *Matrix) Index(id string) int {
	for i, v := range m.IDs {
		if v == id {
			return i
		}
	}
	return -1
}

// Column copies column j out of the matrix
func (m *Matrix) Column(j int) []float64 {
	col := make([]float64, len(m.Rows))
	for i, row := range m.Rows {
		col[i] = row[j]
	}
	return col
}

// SetColumn writes col back into column j
func (m *Matrix) SetColumn(j int, col []float64) {
	for i := range m.Rows {
		m.Rows[i][j] = col[i]
	}
}

// Engineer derives the raw feature vector of every snapshot.
// trendCorr supplies the trend_corr column; ids absent from it get 0.
func Engineer(snapshots []model.Snapshot, trendCorr map[string]float64, h model.Horizon) *Matrix {
	m := &Matrix{
		IDs:  make([]string, len(snapshots)),
		Rows: make([]model.FeatureVector, len(snapshots)),
	}

	for i := range snapshots {
		s := &snapshots[i]
		m.IDs[i] = s.ID
		m.Rows[i] = Extract(s, trendCorr[s.ID], h)
	}

	return m
}

// Extract builds the unnormalized feature vector of one snapshot
func Extract(s *model.Snapshot, trendCorr float64, h model.Horizon) model.FeatureVector {
	v := model.NewFeatureVector()

	v[model.ColPE] = s.PE
	v[model.ColYield] = s.DividendYield
	v[model.ColPB] = s.PB
	v[model.ColEPS] = s.EPS
	v[model.ColGrossMargin] = s.GrossMargin
	v[model.ColOperatingMargin] = s.OperatingMargin
	v[model.ColNetMargin] = s.NetMargin
	v[model.ColRevenueGrowth] = s.RevenueGrowth
	v[model.ColRevenueStreak] = s.RevenueStreak
	v[model.ColBias20] = Bias(s.Close, s.MA20)
	v[model.ColBias60] = Bias(s.Close, s.MA60)
	v[model.ColBeta] = s.Beta
	v[model.ColChangePct] = s.ChangePct

	high, low := s.HighLow(h)
	v[model.ColPosition] = RangePosition(s.Close, low, high)

	v[model.ColCapitalLog] = Log1p(s.Capital)
	v[model.ColVolMA5Log] = Log1p(s.VolMA5)
	v[model.ColVolMA20Log] = Log1p(s.VolMA20)
	v[model.ColConsolidationLog] = Log1p(s.ConsolidationDays)

	if model.IsMissing(trendCorr) {
		trendCorr = 0
	}
	v[model.ColTrendCorr] = trendCorr

	return v
}

// RangePosition locates close inside its [low, high] band; missing when the band is empty
func RangePosition(close, low, high float64) float64 {
	if model.IsMissing(close) || model.IsMissing(low) || model.IsMissing(high) {
		return model.Missing()
	}
	span := high - low
	if span == 0 {
		return model.Missing()
	}
	return (close - low) / span
}

// Bias is the relative deviation of close from a moving average; missing when ma is zero
func Bias(close, ma float64) float64 {
	if model.IsMissing(close) || model.IsMissing(ma) || ma == 0 {
		return model.Missing()
	}
	return (close - ma) / ma
}

// Log1p compresses magnitude columns. Unknown magnitudes count as 0.
func Log1p(x float64) float64 {
	if math.IsNaN(x) {
		x = 0
	}
	if x < -1 {
		return model.Missing()
	}
	return math.Log1p(x)
}
