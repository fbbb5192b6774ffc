package model

import (
	"sort"
	"time"
)

// PricePoint is one daily close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceBar is a daily close keyed by instrument, the row shape used by stores and queues
type PriceBar struct {
	InstrumentID string    `json:"stock_id"`
	Date         time.Time `json:"date"`
	Close        float64   `json:"close"`
}

// PriceSeries is the close history of one instrument, oldest first
type PriceSeries struct {
	InstrumentID string       `json:"stock_id"`
	Points       []PricePoint `json:"points"`
}

// Len returns the number of points in the series
func (s *PriceSeries) Len() int {
	return len(s.Points)
}

// Last returns the most recent point
func (s *PriceSeries) Last() *PricePoint {
	if len(s.Points) == 0 {
		return nil
	}
	return &s.Points[len(s.Points)-1]
}

// Since returns the points dated on or after start
func (s *PriceSeries) Since(start time.Time) []PricePoint {
	idx := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Date.Before(start)
	})
	return s.Points[idx:]
}

// Until returns the points dated on or before end
func (s *PriceSeries) Until(end time.Time) []PricePoint {
	idx := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Date.After(end)
	})
	return s.Points[:idx]
}

// GroupBars groups flat bars into per-instrument series sorted by date.
// Series are returned in order of first appearance.
func GroupBars(bars []PriceBar) []PriceSeries {
	index := make(map[string]int)
	var series []PriceSeries

	for _, b := range bars {
		i, ok := index[b.InstrumentID]
		if !ok {
			i = len(series)
			index[b.InstrumentID] = i
			series = append(series, PriceSeries{InstrumentID: b.InstrumentID})
		}
		series[i].Points = append(series[i].Points, PricePoint{Date: b.Date, Close: b.Close})
	}

	for i := range series {
		pts := series[i].Points
		sort.SliceStable(pts, func(a, b int) bool {
			return pts[a].Date.Before(pts[b].Date)
		})
	}

	return series
}
