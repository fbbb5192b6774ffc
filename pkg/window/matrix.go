package window

import (
	"math"
	"sort"
	"time"

	"github.com/tunogya/twin/pkg/model"
)

// Matrix is a dense date x instrument grid of closes on a shared trading calendar.
// Cells an instrument has no bar for are NaN.
type Matrix struct {
	Dates  []time.Time          // ascending trading dates
	closes map[string][]float64 // instrument id -> closes aligned to Dates
	order  []string             // instrument ids in first-seen order
}

// day truncates t to its calendar date so bars stamped at different times of day align
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Align pivots per-instrument series onto the union of their trading dates.
// A date repeated within one series keeps its last close.
func Align(series []model.PriceSeries) *Matrix {
	dateSet := make(map[time.Time]struct{})
	for _, s := range series {
		for _, p := range s.Points {
			dateSet[day(p.Date)] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	rowOf := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowOf[d] = i
	}

	m := &Matrix{
		Dates:  dates,
		closes: make(map[string][]float64, len(series)),
	}

	for _, s := range series {
		col, ok := m.closes[s.InstrumentID]
		if !ok {
			col = make([]float64, len(dates))
			for i := range col {
				col[i] = math.NaN()
			}
			m.closes[s.InstrumentID] = col
			m.order = append(m.order, s.InstrumentID)
		}
		for _, p := range s.Points {
			col[rowOf[day(p.Date)]] = p.Close
		}
	}

	return m
}

// Len returns the number of dates
func (m *Matrix) Len() int {
	return len(m.Dates)
}

// IDs returns the instrument ids present in the matrix
func (m *Matrix) IDs() []string {
	return m.order
}

// Has reports whether the instrument has at least one close in the matrix
func (m *Matrix) Has(id string) bool {
	col, ok := m.closes[id]
	if !ok {
		return false
	}
	for _, v := range col {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Closes returns the aligned closes of one instrument, nil if unknown
func (m *Matrix) Closes(id string) []float64 {
	return m.closes[id]
}

// Tail keeps the most recent w dates
func (m *Matrix) Tail(w int) *Matrix {
	if w <= 0 || w >= len(m.Dates) {
		return m
	}

	start := len(m.Dates) - w
	out := &Matrix{
		Dates:  m.Dates[start:],
		closes: make(map[string][]float64, len(m.closes)),
		order:  m.order,
	}
	for id, col := range m.closes {
		out.closes[id] = col[start:]
	}
	return out
}

// Pairwise returns the observations where both columns have a close
func Pairwise(a, b []float64) (x, y []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	return x, y
}
