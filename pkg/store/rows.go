// Package store holds the row layout shared by the SQL-backed providers.
//
// Both stores follow the same two-table shape: a stocks table with one row of
// fundamentals and precomputed technical summaries per instrument, and a
// daily_prices table with one row per instrument and trading date.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tunogya/twin/pkg/model"
)

// DateLayout is how trading dates are stored in text columns
const DateLayout = "2006-01-02"

// StockColumns are the numeric stocks columns in the order StockFields returns them
var StockColumns = []string{
	"pe_ratio", "pb_ratio", "yield_rate", "eps",
	"gross_margin", "operating_margin", "pretax_margin", "net_margin",
	"revenue_growth", "eps_growth", "revenue_streak", "capital",
	"beta", "year_high", "year_low", "year_high_2y", "year_low_2y",
	"vol_ma_5", "vol_ma_20", "consolidation_days",
}

// StockFields returns pointers to the snapshot fields backing StockColumns
func StockFields(s *model.Snapshot) []*float64 {
	return []*float64{
		&s.PE, &s.PB, &s.DividendYield, &s.EPS,
		&s.GrossMargin, &s.OperatingMargin, &s.PretaxMargin, &s.NetMargin,
		&s.RevenueGrowth, &s.EPSGrowth, &s.RevenueStreak, &s.Capital,
		&s.Beta, &s.YearHigh, &s.YearLow, &s.YearHigh2Y, &s.YearLow2Y,
		&s.VolMA5, &s.VolMA20, &s.ConsolidationDays,
	}
}

// BarColumns are the numeric daily_prices columns in the order BarFields returns them
var BarColumns = []string{"close", "volume", "change_pct", "ma_20", "ma_60"}

// BarFields returns pointers to the snapshot fields backing BarColumns
func BarFields(s *model.Snapshot) []*float64 {
	return []*float64{&s.Close, &s.Volume, &s.ChangePct, &s.MA20, &s.MA60}
}

// LatestSnapshotSelect joins every instrument with its most recent daily bar
func LatestSnapshotSelect() string {
	cols := []string{"s.stock_id", "s.name", "s.industry", "s.market_type"}
	for _, c := range StockColumns {
		cols = append(cols, "s."+c)
	}
	cols = append(cols, "d.date")
	for _, c := range BarColumns {
		cols = append(cols, "d."+c)
	}

	return `SELECT ` + strings.Join(cols, ", ") + `
		FROM stocks s
		JOIN daily_prices d ON s.stock_id = d.stock_id
		WHERE d.date = (SELECT MAX(dp.date) FROM daily_prices dp WHERE dp.stock_id = s.stock_id)
		ORDER BY s.stock_id`
}

// Scanner is implemented by *sql.Row and *sql.Rows
type Scanner interface {
	Scan(dest ...any) error
}

// ScanSnapshot reads one row produced by LatestSnapshotSelect. NULL numerics become missing.
func ScanSnapshot(row Scanner) (model.Snapshot, error) {
	var (
		id                     string
		name, industry, market sql.NullString
		date                   any
	)

	stockVals := make([]sql.NullFloat64, len(StockColumns))
	barVals := make([]sql.NullFloat64, len(BarColumns))

	dest := []any{&id, &name, &industry, &market}
	for i := range stockVals {
		dest = append(dest, &stockVals[i])
	}
	dest = append(dest, &date)
	for i := range barVals {
		dest = append(dest, &barVals[i])
	}

	if err := row.Scan(dest...); err != nil {
		return model.Snapshot{}, err
	}

	s := model.NewSnapshot(model.Instrument{
		ID:       id,
		Name:     name.String,
		Industry: industry.String,
		Market:   market.String,
	})
	assign(StockFields(&s), stockVals)
	assign(BarFields(&s), barVals)

	d, err := ParseDate(date)
	if err != nil {
		return model.Snapshot{}, err
	}
	s.Date = d

	return s, nil
}

// ScanSnapshots drains rows produced by LatestSnapshotSelect
func ScanSnapshots(rows *sql.Rows) ([]model.Snapshot, error) {
	var out []model.Snapshot
	for rows.Next() {
		s, err := ScanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return out, nil
}

// ScanBars drains stock_id, date, close rows. Rows with a NULL close are skipped.
func ScanBars(rows *sql.Rows) ([]model.PriceBar, error) {
	var out []model.PriceBar
	for rows.Next() {
		var (
			id    string
			date  any
			close sql.NullFloat64
		)
		if err := rows.Scan(&id, &date, &close); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		if !close.Valid {
			continue
		}
		d, err := ParseDate(date)
		if err != nil {
			return nil, err
		}
		out = append(out, model.PriceBar{InstrumentID: id, Date: d, Close: close.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prices: %w", err)
	}
	return out, nil
}

// ParseDate converts a scanned date column. Drivers return DATE columns as
// time.Time and text columns as string or []byte.
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		return parseDateText(d)
	case []byte:
		return parseDateText(string(d))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %T", v)
	}
}

func parseDateText(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Nullable maps a missing value to SQL NULL
func Nullable(v float64) any {
	if model.IsMissing(v) {
		return nil
	}
	return v
}

func assign(fields []*float64, vals []sql.NullFloat64) {
	for i, f := range fields {
		if vals[i].Valid {
			*f = vals[i].Float64
		}
	}
}
