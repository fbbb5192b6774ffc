package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidPreset is returned for presets that cannot be stored
	ErrInvalidPreset = errors.New("invalid preset")
	// ErrPresetNotFound is returned when no preset has the requested name
	ErrPresetNotFound = errors.New("preset not found")
)

// PresetSettings is the saved part of a preset
type PresetSettings struct {
	Weights      WeightProfile `json:"weights"`
	Horizon      Horizon       `json:"horizon,omitempty"`
	IndustryOnly bool          `json:"industry_only"`
}

// Preset is a named, reusable weight profile
type Preset struct {
	Name      string         `json:"name"`
	Settings  PresetSettings `json:"settings"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// Validate checks the name, horizon and weights
func (p *Preset) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPreset)
	}
	if p.Settings.Horizon != "" && !p.Settings.Horizon.Valid() {
		return fmt.Errorf("%w: unknown horizon %q", ErrInvalidPreset, p.Settings.Horizon)
	}
	if err := p.Settings.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}
	return nil
}
