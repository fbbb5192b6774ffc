package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tunogya/twin/pkg/model"
)

// CSVProvider implements Provider over a snapshots file and a prices file.
// Both files carry a header row; columns are matched by name.
type CSVProvider struct {
	snapshotsPath string
	pricesPath    string

	mu        sync.Mutex
	loaded    bool
	snapshots []model.Snapshot
	series    []model.PriceSeries
}

// NewCSVProvider creates a new CSV-based provider. pricesPath may be empty,
// in which case no price history is served.
func NewCSVProvider(snapshotsPath, pricesPath string) *CSVProvider {
	return &CSVProvider{
		snapshotsPath: snapshotsPath,
		pricesPath:    pricesPath,
	}
}

// loadIfNeeded loads both files if not already loaded
func (p *CSVProvider) loadIfNeeded() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	snapshots, err := readFile(p.snapshotsPath, ReadSnapshotsCSV)
	if err != nil {
		return err
	}

	var bars []model.PriceBar
	if p.pricesPath != "" {
		bars, err = readFile(p.pricesPath, ReadPricesCSV)
		if err != nil {
			return err
		}
	}

	p.snapshots = snapshots
	p.series = model.GroupBars(bars)
	p.loaded = true
	return nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

// Snapshots returns every snapshot in the file
func (p *CSVProvider) Snapshots(ctx context.Context) ([]model.Snapshot, error) {
	if err := p.loadIfNeeded(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Snapshot, len(p.snapshots))
	copy(out, p.snapshots)
	return out, nil
}

// PriceHistory returns the closes dated on or after since
func (p *CSVProvider) PriceHistory(ctx context.Context, since time.Time) ([]model.PriceSeries, error) {
	if err := p.loadIfNeeded(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []model.PriceSeries
	for _, s := range p.series {
		if pts := s.Since(since); len(pts) > 0 {
			result = append(result, model.PriceSeries{InstrumentID: s.InstrumentID, Points: pts})
		}
	}
	return result, nil
}

// record gives named access to one CSV row
type record struct {
	cols   map[string]int
	values []string
}

func (r record) get(name string) string {
	if idx, ok := r.cols[name]; ok && idx < len(r.values) {
		return strings.TrimSpace(r.values[idx])
	}
	return ""
}

// float parses a numeric cell. Blank, unparseable and absent cells are missing.
func (r record) float(name string) float64 {
	v, err := strconv.ParseFloat(r.get(name), 64)
	if err != nil {
		return model.Missing()
	}
	return v
}

// readRecords reads the header and invokes fn for every following row
func readRecords(r io.Reader, fn func(record) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for {
		values, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}
		if err := fn(record{cols: cols, values: values}); err != nil {
			return err
		}
	}
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// ReadSnapshotsCSV parses snapshot rows. Column names follow the JSON field
// names of model.Snapshot; rows without a stock_id are skipped.
func ReadSnapshotsCSV(r io.Reader) ([]model.Snapshot, error) {
	var out []model.Snapshot
	err := readRecords(r, func(rec record) error {
		id := rec.get("stock_id")
		if id == "" {
			return nil
		}

		s := model.NewSnapshot(model.Instrument{
			ID:       id,
			Name:     rec.get("name"),
			Industry: rec.get("industry"),
			Market:   rec.get("market"),
		})
		if d := rec.get("date"); d != "" {
			if t, err := ParseDate(d); err == nil {
				s.Date = t
			}
		}

		s.PE = rec.float("pe_ratio")
		s.PB = rec.float("pb_ratio")
		s.DividendYield = rec.float("yield_rate")
		s.EPS = rec.float("eps")
		s.GrossMargin = rec.float("gross_margin")
		s.OperatingMargin = rec.float("operating_margin")
		s.PretaxMargin = rec.float("pretax_margin")
		s.NetMargin = rec.float("net_margin")
		s.RevenueGrowth = rec.float("revenue_growth")
		s.EPSGrowth = rec.float("eps_growth")
		s.RevenueStreak = rec.float("revenue_streak")
		s.Capital = rec.float("capital")
		s.Close = rec.float("close")
		s.Volume = rec.float("volume")
		s.ChangePct = rec.float("change_pct")
		s.VolMA5 = rec.float("vol_ma_5")
		s.VolMA20 = rec.float("vol_ma_20")
		s.Beta = rec.float("beta")
		s.MA20 = rec.float("ma_20")
		s.MA60 = rec.float("ma_60")
		s.YearHigh = rec.float("year_high")
		s.YearLow = rec.float("year_low")
		s.YearHigh2Y = rec.float("year_high_2y")
		s.YearLow2Y = rec.float("year_low_2y")
		s.ConsolidationDays = rec.float("consolidation_days")

		out = append(out, s)
		return nil
	})
	return out, err
}

// ReadPricesCSV parses stock_id,date,close rows. Rows with an invalid date or
// close are skipped.
func ReadPricesCSV(r io.Reader) ([]model.PriceBar, error) {
	var out []model.PriceBar
	err := readRecords(r, func(rec record) error {
		id := rec.get("stock_id")
		if id == "" {
			return nil
		}
		date, err := ParseDate(rec.get("date"))
		if err != nil {
			return nil // Skip invalid records
		}
		close := rec.float("close")
		if model.IsMissing(close) {
			return nil
		}
		out = append(out, model.PriceBar{InstrumentID: id, Date: date, Close: close})
		return nil
	})
	return out, err
}
