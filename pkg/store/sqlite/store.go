// Package sqlite reads snapshots and price history from an existing stock
// database file with stocks and daily_prices tables. It never writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/tunogya/twin/pkg/model"
	"github.com/tunogya/twin/pkg/store"
)

// Store is a read-only data.Provider over a SQLite stock database
type Store struct {
	conn *sql.DB
	path string
}

// Open opens the database file read-only
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)

	return &Store{
		conn: conn,
		path: path,
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Snapshots returns every instrument joined with its most recent daily bar
func (s *Store) Snapshots(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := s.conn.QueryContext(ctx, store.LatestSnapshotSelect())
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	return store.ScanSnapshots(rows)
}

// PriceHistory returns every close dated on or after since
func (s *Store) PriceHistory(ctx context.Context, since time.Time) ([]model.PriceSeries, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT stock_id, date, close
		FROM daily_prices
		WHERE date >= ?
		ORDER BY stock_id ASC, date ASC
	`, since.Format(store.DateLayout))
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

// Industries returns the distinct industries on file
func (s *Store) Industries(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT DISTINCT industry FROM stocks
		WHERE industry IS NOT NULL AND industry != ''
		ORDER BY industry
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query industries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var industry string
		if err := rows.Scan(&industry); err != nil {
			return nil, fmt.Errorf("failed to scan industry: %w", err)
		}
		out = append(out, industry)
	}
	return out, rows.Err()
}
