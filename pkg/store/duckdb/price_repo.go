package duckdb

import (
	"context"
	"fmt"
	"time"

	"github.com/tunogya/twin/pkg/model"
	"github.com/tunogya/twin/pkg/store"
)

// PriceRepo handles daily close persistence
type PriceRepo struct {
	client *Client
}

// NewPriceRepo creates a new price repository
func NewPriceRepo(client *Client) *PriceRepo {
	return &PriceRepo{client: client}
}

// InsertBatch upserts multiple closes in a transaction. Other columns of an
// existing bar are left untouched.
func (r *PriceRepo) InsertBatch(ctx context.Context, bars []model.PriceBar) error {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_prices (stock_id, date, close)
		VALUES (?, CAST(? AS DATE), ?)
		ON CONFLICT (stock_id, date) DO UPDATE SET
			close = EXCLUDED.close
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, b.InstrumentID, b.Date.Format(store.DateLayout), store.Nullable(b.Close))
		if err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	return tx.Commit()
}

// Since retrieves every close dated on or after since, grouped per instrument
func (r *PriceRepo) Since(ctx context.Context, since time.Time) ([]model.PriceSeries, error) {
	query := `
		SELECT stock_id, date, close
		FROM daily_prices
		WHERE date >= CAST(? AS DATE)
		ORDER BY stock_id ASC, date ASC
	`

	rows, err := r.client.Query(ctx, query, since.Format(store.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	bars, err := store.ScanBars(rows)
	if err != nil {
		return nil, err
	}
	return model.GroupBars(bars), nil
}

// LatestDate returns the most recent trading date on file, zero if empty
func (r *PriceRepo) LatestDate(ctx context.Context) (time.Time, error) {
	var d any
	if err := r.client.QueryRow(ctx, "SELECT MAX(date) FROM daily_prices").Scan(&d); err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest date: %w", err)
	}
	return store.ParseDate(d)
}
