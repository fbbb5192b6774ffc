package model

import (
	"encoding/json"
	"time"
)

// snapshotJSON is the wire form of Snapshot. Missing values travel as null.
type snapshotJSON struct {
	Instrument

	PE                *float64  `json:"pe_ratio"`
	PB                *float64  `json:"pb_ratio"`
	DividendYield     *float64  `json:"yield_rate"`
	EPS               *float64  `json:"eps"`
	GrossMargin       *float64  `json:"gross_margin"`
	OperatingMargin   *float64  `json:"operating_margin"`
	PretaxMargin      *float64  `json:"pretax_margin"`
	NetMargin         *float64  `json:"net_margin"`
	RevenueGrowth     *float64  `json:"revenue_growth"`
	EPSGrowth         *float64  `json:"eps_growth"`
	RevenueStreak     *float64  `json:"revenue_streak"`
	Capital           *float64  `json:"capital"`
	Date              time.Time `json:"date"`
	Close             *float64  `json:"close"`
	Volume            *float64  `json:"volume"`
	ChangePct         *float64  `json:"change_pct"`
	VolMA5            *float64  `json:"vol_ma_5"`
	VolMA20           *float64  `json:"vol_ma_20"`
	Beta              *float64  `json:"beta"`
	MA20              *float64  `json:"ma_20"`
	MA60              *float64  `json:"ma_60"`
	YearHigh          *float64  `json:"year_high"`
	YearLow           *float64  `json:"year_low"`
	YearHigh2Y        *float64  `json:"year_high_2y"`
	YearLow2Y         *float64  `json:"year_low_2y"`
	ConsolidationDays *float64  `json:"consolidation_days"`
}

func nullable(v float64) *float64 {
	if IsMissing(v) {
		return nil
	}
	return &v
}

func valueOf(p *float64) float64 {
	if p == nil {
		return Missing()
	}
	return *p
}

// MarshalJSON encodes missing values as null
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Instrument:        s.Instrument,
		PE:                nullable(s.PE),
		PB:                nullable(s.PB),
		DividendYield:     nullable(s.DividendYield),
		EPS:               nullable(s.EPS),
		GrossMargin:       nullable(s.GrossMargin),
		OperatingMargin:   nullable(s.OperatingMargin),
		PretaxMargin:      nullable(s.PretaxMargin),
		NetMargin:         nullable(s.NetMargin),
		RevenueGrowth:     nullable(s.RevenueGrowth),
		EPSGrowth:         nullable(s.EPSGrowth),
		RevenueStreak:     nullable(s.RevenueStreak),
		Capital:           nullable(s.Capital),
		Date:              s.Date,
		Close:             nullable(s.Close),
		Volume:            nullable(s.Volume),
		ChangePct:         nullable(s.ChangePct),
		VolMA5:            nullable(s.VolMA5),
		VolMA20:           nullable(s.VolMA20),
		Beta:              nullable(s.Beta),
		MA20:              nullable(s.MA20),
		MA60:              nullable(s.MA60),
		YearHigh:          nullable(s.YearHigh),
		YearLow:           nullable(s.YearLow),
		YearHigh2Y:        nullable(s.YearHigh2Y),
		YearLow2Y:         nullable(s.YearLow2Y),
		ConsolidationDays: nullable(s.ConsolidationDays),
	})
}

// UnmarshalJSON decodes null or absent numeric fields as missing
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w snapshotJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*s = Snapshot{
		Instrument:        w.Instrument,
		PE:                valueOf(w.PE),
		PB:                valueOf(w.PB),
		DividendYield:     valueOf(w.DividendYield),
		EPS:               valueOf(w.EPS),
		GrossMargin:       valueOf(w.GrossMargin),
		OperatingMargin:   valueOf(w.OperatingMargin),
		PretaxMargin:      valueOf(w.PretaxMargin),
		NetMargin:         valueOf(w.NetMargin),
		RevenueGrowth:     valueOf(w.RevenueGrowth),
		EPSGrowth:         valueOf(w.EPSGrowth),
		RevenueStreak:     valueOf(w.RevenueStreak),
		Capital:           valueOf(w.Capital),
		Date:              w.Date,
		Close:             valueOf(w.Close),
		Volume:            valueOf(w.Volume),
		ChangePct:         valueOf(w.ChangePct),
		VolMA5:            valueOf(w.VolMA5),
		VolMA20:           valueOf(w.VolMA20),
		Beta:              valueOf(w.Beta),
		MA20:              valueOf(w.MA20),
		MA60:              valueOf(w.MA60),
		YearHigh:          valueOf(w.YearHigh),
		YearLow:           valueOf(w.YearLow),
		YearHigh2Y:        valueOf(w.YearHigh2Y),
		YearLow2Y:         valueOf(w.YearLow2Y),
		ConsolidationDays: valueOf(w.ConsolidationDays),
	}
	return nil
}
