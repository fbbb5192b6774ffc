package main

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/twin/pkg/model"
	queue "github.com/tunogya/twin/pkg/queue/nats"
	"github.com/tunogya/twin/pkg/store/duckdb"
)

func newTestWriter(t *testing.T) *writer {
	t.Helper()
	st, err := duckdb.Open(context.Background(), filepath.Join(t.TempDir(), "writer.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return &writer{store: st, log: zerolog.Nop()}
}

func TestWriter_Handlers(t *testing.T) {
	ctx := context.Background()
	w := newTestWriter(t)
	day := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	s := model.NewSnapshot(model.Instrument{ID: "2330", Name: "TSMC", Industry: "Semis"})
	s.Date = day
	s.Close = 900
	s.PE = 25

	payload, err := queue.Encode(queue.SnapshotBatchMsg{Snapshots: []model.Snapshot{s}})
	require.NoError(t, err)
	require.NoError(t, w.handleSnapshots(ctx, payload))

	payload, err = queue.Encode(queue.PriceBatchMsg{Bars: []model.PriceBar{
		{InstrumentID: "2330", Date: day.AddDate(0, 0, -1), Close: 890},
		{InstrumentID: "2330", Date: day, Close: 905},
	}})
	require.NoError(t, err)
	require.NoError(t, w.handlePrices(ctx, payload))

	snapshots, err := w.store.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 905.0, snapshots[0].Close)
	assert.Equal(t, 25.0, snapshots[0].PE)
	assert.True(t, math.IsNaN(snapshots[0].PB))

	series, err := w.store.PriceHistory(ctx, day.AddDate(0, 0, -10))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 2, series[0].Len())
}

func TestWriter_RejectsBadPayloads(t *testing.T) {
	ctx := context.Background()
	w := newTestWriter(t)

	assert.Error(t, w.handleSnapshots(ctx, []byte("{")))
	assert.Error(t, w.handleSnapshots(ctx, []byte(`{"snapshots":[{"name":"no id"}]}`)))
	assert.Error(t, w.handlePrices(ctx, []byte(`{"bars":[{"stock_id":"2330","close":1}]}`)))

	// Empty batches are acknowledged without touching the store
	assert.NoError(t, w.handleSnapshots(ctx, []byte(`{"snapshots":[]}`)))
	assert.NoError(t, w.handlePrices(ctx, []byte(`{}`)))
}
