package model

import (
	"math"
	"time"
)

// Instrument is the identity of a tradable stock
type Instrument struct {
	ID       string `json:"stock_id"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
	Market   string `json:"market,omitempty"` // listing board, e.g. "sii" or "otc"
}

// Snapshot holds the latest known fundamental and technical attributes of one instrument.
// Numeric fields the upstream pipeline could not fill are NaN (see Missing).
type Snapshot struct {
	Instrument

	// valuation
	PE            float64 `json:"pe_ratio"`
	PB            float64 `json:"pb_ratio"`
	DividendYield float64 `json:"yield_rate"` // percent
	EPS           float64 `json:"eps"`

	// profitability, percent
	GrossMargin     float64 `json:"gross_margin"`
	OperatingMargin float64 `json:"operating_margin"`
	PretaxMargin    float64 `json:"pretax_margin"`
	NetMargin       float64 `json:"net_margin"`

	// growth
	RevenueGrowth float64 `json:"revenue_growth"` // YoY percent
	EPSGrowth     float64 `json:"eps_growth"`     // YoY percent
	RevenueStreak float64 `json:"revenue_streak"` // consecutive years of revenue growth

	// size
	Capital float64 `json:"capital"` // issued capital

	// latest bar and technicals
	Date       time.Time `json:"date"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	ChangePct  float64   `json:"change_pct"`
	VolMA5     float64   `json:"vol_ma_5"`
	VolMA20    float64   `json:"vol_ma_20"`
	Beta       float64   `json:"beta"`
	MA20       float64   `json:"ma_20"`
	MA60       float64   `json:"ma_60"`
	YearHigh   float64   `json:"year_high"`
	YearLow    float64   `json:"year_low"`
	YearHigh2Y float64   `json:"year_high_2y"`
	YearLow2Y  float64   `json:"year_low_2y"`

	// trading days the close stayed inside a band around the current level
	ConsolidationDays float64 `json:"consolidation_days"`
}

// Missing returns the marker used for unknown numeric values
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is unknown or not a finite number
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// NewSnapshot returns a snapshot for the instrument with every numeric field missing
func NewSnapshot(inst Instrument) Snapshot {
	nan := Missing()
	return Snapshot{
		Instrument:        inst,
		PE:                nan,
		PB:                nan,
		DividendYield:     nan,
		EPS:               nan,
		GrossMargin:       nan,
		OperatingMargin:   nan,
		PretaxMargin:      nan,
		NetMargin:         nan,
		RevenueGrowth:     nan,
		EPSGrowth:         nan,
		RevenueStreak:     nan,
		Capital:           nan,
		Close:             nan,
		Volume:            nan,
		ChangePct:         nan,
		VolMA5:            nan,
		VolMA20:           nan,
		Beta:              nan,
		MA20:              nan,
		MA60:              nan,
		YearHigh:          nan,
		YearLow:           nan,
		YearHigh2Y:        nan,
		YearLow2Y:         nan,
		ConsolidationDays: nan,
	}
}

// HighLow returns the high/low band for the given lookback horizon
func (s *Snapshot) HighLow(h Horizon) (high, low float64) {
	if h == Horizon2Y {
		return s.YearHigh2Y, s.YearLow2Y
	}
	return s.YearHigh, s.YearLow
}

// VolumeSpike returns the latest volume as a multiple of the 20-day average volume
func (s *Snapshot) VolumeSpike() float64 {
	if IsMissing(s.Volume) || IsMissing(s.VolMA20) || s.VolMA20 <= 0 {
		return 0
	}
	return s.Volume / s.VolMA20
}

// FindSnapshot returns the index of the snapshot with the given id, or -1
func FindSnapshot(snapshots []Snapshot, id string) int {
	for i := range snapshots {
		if snapshots[i].ID == id {
			return i
		}
	}
	return -1
}
