package data

import (
	"context"
	"time"

	"github.com/tunogya/twin/pkg/model"
)

// SnapshotProvider supplies the latest snapshot of every known instrument
type SnapshotProvider interface {
	// Snapshots returns one row per instrument, as of its most recent trading date
	Snapshots(ctx context.Context) ([]model.Snapshot, error)
}

// PriceHistoryProvider supplies daily closes
type PriceHistoryProvider interface {
	// PriceHistory returns every instrument's closes dated on or after since,
	// each series ordered oldest first
	PriceHistory(ctx context.Context, since time.Time) ([]model.PriceSeries, error)
}

// Provider is everything the similarity engine reads
type Provider interface {
	SnapshotProvider
	PriceHistoryProvider
}

// DateLayout is the calendar date format used by files and stores
const DateLayout = "2006-01-02"
