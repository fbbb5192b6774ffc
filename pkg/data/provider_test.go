package data

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/twin/pkg/model"
)

const snapshotsCSV = `stock_id,name,industry,date,pe_ratio,pb_ratio,close,year_high,year_low,vol_ma_20
2330,TSMC,semis,2024-06-28,18.5,,1000,1080,540,30000
2303,UMC,semis,2024-06-28,n/a,1.2,50,60,40,
,orphan,semis,2024-06-28,1,1,1,1,1,1
`

const pricesCSV = `stock_id,date,close
2330,2024-06-27,990
2330,2024-06-26,980
2303,2024-06-27,49.5
2303,bad-date,50
2330,2024-06-28,
2330,2024-06-28T00:00:00Z,1000
`

func day(s string) time.Time {
	t, _ := time.Parse(DateLayout, s)
	return t
}

func TestReadSnapshotsCSV(t *testing.T) {
	snapshots, err := ReadSnapshotsCSV(strings.NewReader(snapshotsCSV))
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	tsmc := snapshots[0]
	assert.Equal(t, "2330", tsmc.ID)
	assert.Equal(t, "TSMC", tsmc.Name)
	assert.Equal(t, "semis", tsmc.Industry)
	assert.Equal(t, 18.5, tsmc.PE)
	assert.True(t, model.IsMissing(tsmc.PB))
	assert.True(t, model.IsMissing(tsmc.Beta)) // absent column
	assert.Equal(t, day("2024-06-28"), tsmc.Date)

	umc := snapshots[1]
	assert.True(t, model.IsMissing(umc.PE))
	assert.Equal(t, 1.2, umc.PB)
	assert.True(t, model.IsMissing(umc.VolMA20))
}

func TestReadPricesCSV(t *testing.T) {
	bars, err := ReadPricesCSV(strings.NewReader(pricesCSV))
	require.NoError(t, err)
	assert.Len(t, bars, 4)

	series := model.GroupBars(bars)
	require.Len(t, series, 2)
	assert.Equal(t, "2330", series[0].InstrumentID)
	assert.Equal(t, 3, series[0].Len())
	assert.Equal(t, 980.0, series[0].Points[0].Close)
	assert.Equal(t, 1000.0, series[0].Last().Close)
}

func TestReadCSV_EmptyInput(t *testing.T) {
	_, err := ReadSnapshotsCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestCSVProvider(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snapshots.csv")
	pricePath := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(snapPath, []byte(snapshotsCSV), 0o644))
	require.NoError(t, os.WriteFile(pricePath, []byte(pricesCSV), 0o644))

	p := NewCSVProvider(snapPath, pricePath)
	ctx := context.Background()

	snapshots, err := p.Snapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshots, 2)

	history, err := p.PriceHistory(ctx, day("2024-06-27"))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Len())
	assert.Equal(t, 1, history[1].Len())

	_, err = NewCSVProvider(filepath.Join(dir, "missing.csv"), "").Snapshots(ctx)
	assert.Error(t, err)

	noPrices := NewCSVProvider(snapPath, "")
	history, err = noPrices.PriceHistory(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	a := model.NewSnapshot(model.Instrument{ID: "A"})
	p := NewMemoryProvider([]model.Snapshot{a}, nil)

	b := model.NewSnapshot(model.Instrument{ID: "B"})
	a2 := model.NewSnapshot(model.Instrument{ID: "A", Name: "renamed"})
	p.AddSnapshots([]model.Snapshot{b, a2})

	snapshots, err := p.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "renamed", snapshots[0].Name)

	p.AddBars([]model.PriceBar{
		{InstrumentID: "A", Date: day("2024-01-03"), Close: 3},
		{InstrumentID: "A", Date: day("2024-01-01"), Close: 1},
	})
	p.AddBars([]model.PriceBar{{InstrumentID: "B", Date: day("2024-01-02"), Close: 2}})

	history, err := p.PriceHistory(ctx, day("2024-01-02"))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []model.PricePoint{{Date: day("2024-01-03"), Close: 3}}, history[0].Points)

	// returned slices are copies
	history[0].Points[0].Close = 99
	again, _ := p.PriceHistory(ctx, day("2024-01-02"))
	assert.Equal(t, 3.0, again[0].Points[0].Close)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Snapshots(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}
