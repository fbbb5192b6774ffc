// Package trend measures how closely recent price trajectories follow a target instrument.
package trend

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/tunogya/twin/pkg/model"
	"github.com/tunogya/twin/pkg/window"
)

// Config holds trend correlation parameters
type Config struct {
	Window      int `yaml:"window"`       // trailing trading bars compared
	HorizonDays int `yaml:"horizon_days"` // calendar days of history fetched
	MinOverlap  int `yaml:"min_overlap"`  // overlapping bars required for a coefficient
}

// DefaultConfig returns a 60-bar window over 120 calendar days
func DefaultConfig() Config {
	return Config{
		Window:      60,
		HorizonDays: 120,
		MinOverlap:  2,
	}
}

// Computer computes Pearson correlations of aligned closes against a target
type Computer struct {
	config Config
	log    zerolog.Logger
}

// NewComputer creates a new trend correlation computer
func NewComputer(cfg Config, log zerolog.Logger) *Computer {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = def.HorizonDays
	}
	if cfg.MinOverlap < 2 {
		cfg.MinOverlap = def.MinOverlap
	}
	return &Computer{
		config: cfg,
		log:    log.With().Str("component", "trend").Logger(),
	}
}

// Config returns the effective configuration
func (c *Computer) Config() Config {
	return c.config
}

// Since returns the first calendar day of history the computer needs
func (c *Computer) Since(asOf time.Time) time.Time {
	return asOf.AddDate(0, 0, -c.config.HorizonDays)
}

// Compute returns a coefficient for every id in universe. Instruments without
// enough overlapping history, or whose coefficient is undefined, get 0.
func (c *Computer) Compute(targetID string, series []model.PriceSeries, universe []string) map[string]float64 {
	out := make(map[string]float64, len(universe))
	for _, id := range universe {
		out[id] = 0
	}

	recent := window.Align(series).Tail(c.config.Window)
	if !recent.Has(targetID) {
		c.log.Debug().
			Str("target", targetID).
			Int("series", len(series)).
			Msg("No correlation data for target, using neutral coefficients")
		return out
	}

	target := recent.Closes(targetID)
	neutral := 0
	for _, id := range universe {
		closes := recent.Closes(id)
		if closes == nil {
			neutral++
			continue
		}
		r := c.pearson(target, closes)
		if r == 0 {
			neutral++
		}
		out[id] = r
	}

	c.log.Debug().
		Str("target", targetID).
		Int("dates", recent.Len()).
		Int("universe", len(universe)).
		Int("neutral", neutral).
		Msg("Computed trend correlations")

	return out
}

// pearson correlates two aligned close columns over their common observations
func (c *Computer) pearson(a, b []float64) float64 {
	x, y := window.Pairwise(a, b)
	if len(x) < c.config.MinOverlap {
		return 0
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}
