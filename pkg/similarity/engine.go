// Package similarity ranks a universe of instruments by how closely they resemble a target.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tunogya/twin/pkg/data"
	"github.com/tunogya/twin/pkg/feature"
	"github.com/tunogya/twin/pkg/model"
	"github.com/tunogya/twin/pkg/rank"
	"github.com/tunogya/twin/pkg/trend"
)

var (
	// ErrTargetNotFound is returned when the target id is not in the universe
	ErrTargetNotFound = errors.New("target not found")
	// ErrInsufficientUniverse is returned when fewer than two instruments remain to compare
	ErrInsufficientUniverse = errors.New("insufficient universe")
	// ErrInvalidRequest is returned for malformed requests
	ErrInvalidRequest = errors.New("invalid request")
)

// Config holds engine parameters
type Config struct {
	Trend         trend.Config `yaml:"trend"`
	DefaultLimit  int          `yaml:"default_limit"`  // results returned when a request sets no limit
	DefaultWeight int          `yaml:"default_weight"` // weight of factors a request omits
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		Trend:         trend.DefaultConfig(),
		DefaultLimit:  11,
		DefaultWeight: model.DefaultWeight,
	}
}

// Request is one similarity query
type Request struct {
	TargetID      string
	Weights       model.WeightProfile
	Horizon       model.Horizon
	IndustryOnly  bool
	Limit         int     // 0 uses the configured default, negative returns everything
	MinSimilarity float64 // results below this score are dropped; the target is always kept
	AsOf          time.Time // trend window anchor; closes after this day are ignored
}

// Validate checks the request and fills defaults for the horizon
func (r *Request) Validate() error {
	r.TargetID = strings.TrimSpace(r.TargetID)
	if r.TargetID == "" {
		return fmt.Errorf("%w: target id is required", ErrInvalidRequest)
	}
	if r.Horizon == "" {
		r.Horizon = model.Horizon1Y
	}
	if !r.Horizon.Valid() {
		return fmt.Errorf("%w: unknown horizon %q", ErrInvalidRequest, r.Horizon)
	}
	if err := r.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.MinSimilarity < 0 || r.MinSimilarity > 100 {
		return fmt.Errorf("%w: min similarity %.2f outside [0,100]", ErrInvalidRequest, r.MinSimilarity)
	}
	return nil
}

// Inputs is everything one ranking pass reads
type Inputs struct {
	Snapshots []model.Snapshot
	Prices    []model.PriceSeries
}

// Engine answers similarity queries against a provider
type Engine struct {
	provider data.Provider
	config   Config
	log      zerolog.Logger
}

// NewEngine creates a new similarity engine
func NewEngine(provider data.Provider, cfg Config, log zerolog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.DefaultWeight <= 0 || cfg.DefaultWeight > model.MaxWeight {
		cfg.DefaultWeight = def.DefaultWeight
	}
	return &Engine{
		provider: provider,
		config:   cfg,
		log:      log.With().Str("component", "similarity").Logger(),
	}
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.config
}

// FindSimilar ranks the universe against req.TargetID
func (e *Engine) FindSimilar(ctx context.Context, req Request) ([]model.SimilarityResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.AsOf.IsZero() {
		req.AsOf = time.Now()
	}

	snapshots, err := e.provider.Snapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshots: %w", err)
	}
	if model.FindSnapshot(snapshots, req.TargetID) < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, req.TargetID)
	}

	since := trend.NewComputer(e.config.Trend, e.log).Since(req.AsOf)
	prices, err := e.provider.PriceHistory(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price history: %w", err)
	}

	prices = closesUntil(prices, req.AsOf)

	start := time.Now()
	results, err := rankUniverse(Inputs{Snapshots: snapshots, Prices: prices}, req, e.config, e.log)
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Str("target", req.TargetID).
		Int("universe", len(snapshots)).
		Int("series", len(prices)).
		Int("results", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("Ranked universe")

	return results, nil
}

// Rank runs one ranking pass over already fetched inputs. It performs no I/O
// and returns the same results for the same inputs.
func Rank(in Inputs, req Request, cfg Config) ([]model.SimilarityResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return rankUniverse(in, req, cfg, zerolog.Nop())
}

func rankUniverse(in Inputs, req Request, cfg Config, log zerolog.Logger) ([]model.SimilarityResult, error) {
	targetIdx := model.FindSnapshot(in.Snapshots, req.TargetID)
	if targetIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, req.TargetID)
	}

	// Correlations are measured against the whole universe before any restriction
	ids := make([]string, len(in.Snapshots))
	for i := range in.Snapshots {
		ids[i] = in.Snapshots[i].ID
	}
	corr := trend.NewComputer(cfg.Trend, log).Compute(req.TargetID, in.Prices, ids)

	universe := in.Snapshots
	if req.IndustryOnly {
		universe = sameIndustry(in.Snapshots, in.Snapshots[targetIdx].Industry)
	}
	if len(universe) < 2 {
		return nil, fmt.Errorf("%w: %d instrument(s) to compare", ErrInsufficientUniverse, len(universe))
	}

	m := feature.Engineer(universe, corr, req.Horizon)
	stats := feature.NewNormalizer().Normalize(m)
	for _, cs := range stats {
		if cs.Degenerate {
			log.Debug().
				Str("column", cs.Column).
				Int("imputed", cs.Imputed).
				Msg("Degenerate column normalized to zero")
		}
	}

	defWeight := cfg.DefaultWeight
	if defWeight <= 0 {
		defWeight = model.DefaultWeight
	}
	weights := req.Weights.Vector(defWeight)

	target := m.Index(req.TargetID)
	scored := rank.Score(m, weights, target)
	rank.Sort(scored)
	scored = rank.FilterByMinScore(scored, req.MinSimilarity)

	limit := req.Limit
	if limit == 0 {
		limit = cfg.DefaultLimit
	}
	scored = rank.TopN(scored, limit)

	results := make([]model.SimilarityResult, len(scored))
	for i, sc := range scored {
		s := universe[sc.Index]
		high, low := s.HighLow(req.Horizon)
		results[i] = model.SimilarityResult{
			Snapshot:    s,
			Rank:        i + 1,
			Similarity:  sc.Similarity,
			Distance:    sc.Distance,
			TrendCorr:   corr[s.ID],
			Position:    feature.RangePosition(s.Close, low, high),
			VolumeSpike: s.VolumeSpike(),
			IsTarget:    sc.IsTarget,
		}
	}

	return results, nil
}

func sameIndustry(snapshots []model.Snapshot, industry string) []model.Snapshot {
	var out []model.Snapshot
	for _, s := range snapshots {
		if s.Industry == industry {
			out = append(out, s)
		}
	}
	return out
}

// closesUntil drops closes dated after the as-of day. Snapshots are always
// the latest on file; as-of anchors only the trend window.
func closesUntil(series []model.PriceSeries, asOf time.Time) []model.PriceSeries {
	y, m, d := asOf.Date()
	end := time.Date(y, m, d, 23, 59, 59, 0, asOf.Location())

	out := make([]model.PriceSeries, 0, len(series))
	for i := range series {
		if pts := series[i].Until(end); len(pts) > 0 {
			out = append(out, model.PriceSeries{InstrumentID: series[i].InstrumentID, Points: pts})
		}
	}
	return out
}
