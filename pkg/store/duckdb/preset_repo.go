package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tunogya/twin/pkg/model"
)

// ErrPresetNotFound is returned when no preset has the requested name
var ErrPresetNotFound = model.ErrPresetNotFound

// PresetRepo handles named weight presets
type PresetRepo struct {
	client *Client
}

// NewPresetRepo creates a new preset repository
func NewPresetRepo(client *Client) *PresetRepo {
	return &PresetRepo{client: client}
}

// Save inserts or replaces a preset
func (r *PresetRepo) Save(ctx context.Context, p *model.Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}

	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode preset settings: %w", err)
	}

	query := `
		INSERT INTO user_presets (name, settings, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET
			settings = EXCLUDED.settings,
			updated_at = EXCLUDED.updated_at
	`
	if err := r.client.Exec(ctx, query, p.Name, string(settings)); err != nil {
		return fmt.Errorf("failed to save preset: %w", err)
	}
	return nil
}

// Get retrieves a preset by name
func (r *PresetRepo) Get(ctx context.Context, name string) (*model.Preset, error) {
	row := r.client.QueryRow(ctx, `
		SELECT name, settings, updated_at
		FROM user_presets
		WHERE name = ?
	`, name)

	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns every preset ordered by name
func (r *PresetRepo) List(ctx context.Context) ([]model.Preset, error) {
	rows, err := r.client.Query(ctx, `
		SELECT name, settings, updated_at
		FROM user_presets
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query presets: %w", err)
	}
	defer rows.Close()

	presets := make([]model.Preset, 0)
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate presets: %w", err)
	}
	return presets, nil
}

// Delete removes a preset by name
func (r *PresetRepo) Delete(ctx context.Context, name string) error {
	res, err := r.client.DB().ExecContext(ctx, "DELETE FROM user_presets WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	return nil
}

func scanPreset(row interface{ Scan(...any) error }) (*model.Preset, error) {
	var (
		p        model.Preset
		settings string
		updated  sql.NullTime
	)
	if err := row.Scan(&p.Name, &settings, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan preset: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &p.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode preset %s: %w", p.Name, err)
	}
	if updated.Valid {
		p.UpdatedAt = updated.Time.UTC().Truncate(time.Second)
	}
	return &p, nil
}
