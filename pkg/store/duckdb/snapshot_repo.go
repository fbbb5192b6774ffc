package duckdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/tunogya/twin/pkg/model"
	"github.com/tunogya/twin/pkg/store"
)

// SnapshotRepo handles snapshot persistence. A snapshot is stored as its
// stocks row plus the daily_prices row of its trading date.
type SnapshotRepo struct {
	client *Client
}

// NewSnapshotRepo creates a new snapshot repository
func NewSnapshotRepo(client *Client) *SnapshotRepo {
	return &SnapshotRepo{client: client}
}

func upsertStockSQL() string {
	cols := append([]string{"stock_id", "name", "industry", "market_type"}, store.StockColumns...)
	updates := make([]string, 0, len(cols))
	for _, c := range cols[1:] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	updates = append(updates, "last_updated = now()")

	return fmt.Sprintf(`
		INSERT INTO stocks (%s)
		VALUES (%s)
		ON CONFLICT (stock_id) DO UPDATE SET
			%s
	`, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(updates, ",\n\t\t\t"))
}

func upsertBarSQL() string {
	updates := make([]string, len(store.BarColumns))
	for i, c := range store.BarColumns {
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}

	return fmt.Sprintf(`
		INSERT INTO daily_prices (stock_id, date, %s)
		VALUES (?, CAST(? AS DATE), %s)
		ON CONFLICT (stock_id, date) DO UPDATE SET
			%s
	`, strings.Join(store.BarColumns, ", "), placeholders(len(store.BarColumns)), strings.Join(updates, ",\n\t\t\t"))
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stockArgs(s *model.Snapshot) []any {
	args := []any{s.ID, s.Name, s.Industry, s.Market}
	for _, f := range store.StockFields(s) {
		args = append(args, store.Nullable(*f))
	}
	return args
}

func barArgs(s *model.Snapshot) []any {
	args := []any{s.ID, s.Date.Format(store.DateLayout)}
	for _, f := range store.BarFields(s) {
		args = append(args, store.Nullable(*f))
	}
	return args
}

// UpsertBatch writes multiple snapshots in a transaction. Snapshots without a
// date update only their stocks row.
func (r *SnapshotRepo) UpsertBatch(ctx context.Context, snapshots []model.Snapshot) error {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stockStmt, err := tx.PrepareContext(ctx, upsertStockSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stockStmt.Close()

	barStmt, err := tx.PrepareContext(ctx, upsertBarSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer barStmt.Close()

	for i := range snapshots {
		s := &snapshots[i]
		if s.ID == "" {
			return fmt.Errorf("failed to upsert snapshot %d: empty stock id", i)
		}
		if _, err := stockStmt.ExecContext(ctx, stockArgs(s)...); err != nil {
			return fmt.Errorf("failed to upsert stock %s: %w", s.ID, err)
		}
		if s.Date.IsZero() {
			continue
		}
		if _, err := barStmt.ExecContext(ctx, barArgs(s)...); err != nil {
			return fmt.Errorf("failed to upsert bar %s: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

// Latest returns every instrument joined with its most recent bar
func (r *SnapshotRepo) Latest(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := r.client.Query(ctx, store.LatestSnapshotSelect())
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	return store.ScanSnapshots(rows)
}

// Count returns the number of instruments
func (r *SnapshotRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM stocks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stocks: %w", err)
	}
	return count, nil
}
