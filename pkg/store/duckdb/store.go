package duckdb

import (
	"context"
	"fmt"
	"time"

	"github.com/tunogya/twin/pkg/model"
)

// Store serves snapshots and price history from DuckDB and owns the repositories.
// It implements data.Provider.
type Store struct {
	client    *Client
	snapshots *SnapshotRepo
	prices    *PriceRepo
	presets   *PresetRepo
}

// Open opens the database at path and makes sure the schema exists
func Open(ctx context.Context, path string) (*Store, error) {
	client, err := NewClient(path)
	if err != nil {
		return nil, err
	}
	if err := InitializeSchema(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return NewStore(client), nil
}

// NewStore wraps an existing client
func NewStore(client *Client) *Store {
	return &Store{
		client:    client,
		snapshots: NewSnapshotRepo(client),
		prices:    NewPriceRepo(client),
		presets:   NewPresetRepo(client),
	}
}

// Client returns the underlying client
func (s *Store) Client() *Client { return s.client }

// SnapshotRepo returns the snapshot repository
func (s *Store) SnapshotRepo() *SnapshotRepo { return s.snapshots }

// PriceRepo returns the price repository
func (s *Store) PriceRepo() *PriceRepo { return s.prices }

// PresetRepo returns the preset repository
func (s *Store) PresetRepo() *PresetRepo { return s.presets }

// Close closes the database
func (s *Store) Close() error {
	return s.client.Close()
}

// Snapshots returns the latest snapshot of every instrument
func (s *Store) Snapshots(ctx context.Context) ([]model.Snapshot, error) {
	snapshots, err := s.snapshots.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots from duckdb: %w", err)
	}
	return snapshots, nil
}

// PriceHistory returns closes dated on or after since
func (s *Store) PriceHistory(ctx context.Context, since time.Time) ([]model.PriceSeries, error) {
	return s.prices.Since(ctx, since)
}
