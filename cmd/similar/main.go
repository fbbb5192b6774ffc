package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/tunogya/twin/pkg/config"
	"github.com/tunogya/twin/pkg/logger"
	"github.com/tunogya/twin/pkg/model"
	"github.com/tunogya/twin/pkg/similarity"
)

// Options holds command line options
type Options struct {
	ConfigPath    string
	Provider      string
	Target        string
	Weights       string
	Preset        string
	Horizon       string
	IndustryOnly  bool
	Limit         int
	MinSimilarity float64
	AsOf          string
	JSON          bool
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}
	if opts.Provider != "" {
		cfg.Provider = strings.ToLower(opts.Provider)
	}

	log := logger.New(cfg.Log)
	logger.SetGlobalLogger(log)

	ctx := context.Background()
	if err := run(ctx, cfg, opts, log); err != nil {
		log.Error().Err(err).Str("target", opts.Target).Msg("Similarity query failed")
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config, opts Options, log zerolog.Logger) error {
	src, err := cfg.OpenSource(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s provider: %w", cfg.Provider, err)
	}
	defer src.Close()

	req, err := buildRequest(ctx, src, opts)
	if err != nil {
		return err
	}

	engine := similarity.NewEngine(src.Provider, cfg.Engine, log)
	results, err := engine.FindSimilar(ctx, req)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printTable(results)
	return nil
}

func buildRequest(ctx context.Context, src *config.Source, opts Options) (similarity.Request, error) {
	weights, err := parseWeights(opts.Weights)
	if err != nil {
		return similarity.Request{}, fmt.Errorf("%w: %w", similarity.ErrInvalidRequest, err)
	}
	horizon, err := model.ParseHorizon(opts.Horizon)
	if err != nil {
		return similarity.Request{}, fmt.Errorf("%w: %w", similarity.ErrInvalidRequest, err)
	}

	req := similarity.Request{
		TargetID:      opts.Target,
		Weights:       weights,
		Horizon:       horizon,
		IndustryOnly:  opts.IndustryOnly,
		Limit:         opts.Limit,
		MinSimilarity: opts.MinSimilarity,
	}

	if opts.Preset != "" {
		if src.DuckDB == nil {
			return req, fmt.Errorf("%w: presets need the duckdb provider", similarity.ErrInvalidRequest)
		}
		p, err := src.DuckDB.PresetRepo().Get(ctx, opts.Preset)
		if err != nil {
			return req, err
		}
		req.Weights = p.Settings.Weights.Merge(weights)
		if opts.Horizon == "" && p.Settings.Horizon != "" {
			req.Horizon = p.Settings.Horizon
		}
		req.IndustryOnly = req.IndustryOnly || p.Settings.IndustryOnly
	}

	if opts.AsOf != "" {
		asOf, err := time.Parse("2006-01-02", opts.AsOf)
		if err != nil {
			return req, fmt.Errorf("%w: -as-of must be YYYY-MM-DD", similarity.ErrInvalidRequest)
		}
		req.AsOf = asOf
	}

	return req, nil
}

// parseWeights reads "pe=5,trend=0" style lists
func parseWeights(s string) (model.WeightProfile, error) {
	w := make(model.WeightProfile)
	if strings.TrimSpace(s) == "" {
		return w, nil
	}
	for _, part := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("weight %q is not key=value", part)
		}
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", part, err)
		}
		w[strings.TrimSpace(key)] = v
	}
	return w, w.Validate()
}

func printTable(results []model.SimilarityResult) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tNAME\tINDUSTRY\tSIM%\tCLOSE\tPOSITION\tTREND\tVOL SPIKE\t")
	for _, r := range results {
		id := r.Snapshot.ID
		if r.IsTarget {
			id += " *"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%s\t%s\t%.3f\t%s\t\n",
			r.Rank, id, r.Snapshot.Name, r.Snapshot.Industry, r.Similarity,
			num(r.Snapshot.Close, "%.2f"), pct(r.Position), r.TrendCorr, num(r.VolumeSpike, "%.2fx"))
	}
	tw.Flush()
}

func num(v float64, format string) string {
	if model.IsMissing(v) {
		return "-"
	}
	return fmt.Sprintf(format, v)
}

func pct(v float64) string {
	if model.IsMissing(v) {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", v*100)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, similarity.ErrInvalidRequest), errors.Is(err, model.ErrInvalidWeight):
		return 2
	case errors.Is(err, similarity.ErrTargetNotFound), errors.Is(err, model.ErrPresetNotFound):
		return 3
	case errors.Is(err, similarity.ErrInsufficientUniverse):
		return 4
	default:
		return 1
	}
}

func parseFlags() Options {
	opts := Options{}

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	flag.StringVar(&opts.Provider, "provider", "", "Data provider override (duckdb, sqlite, csv)")
	flag.StringVar(&opts.Target, "target", "", "Target stock id")
	flag.StringVar(&opts.Weights, "weights", "", "Factor weights, e.g. pe=5,trend=0 (omitted factors use the default)")
	flag.StringVar(&opts.Preset, "preset", "", "Saved weight preset (duckdb provider only)")
	flag.StringVar(&opts.Horizon, "horizon", "", "High/low horizon for range position: 1y or 2y")
	flag.BoolVar(&opts.IndustryOnly, "industry-only", false, "Compare only within the target's industry")
	flag.IntVar(&opts.Limit, "limit", 0, "Number of results including the target (0 uses the config default, -1 for all)")
	flag.Float64Var(&opts.MinSimilarity, "min-similarity", 0, "Drop results below this similarity percentage")
	flag.StringVar(&opts.AsOf, "as-of", "", "Reference date for the trend window (YYYY-MM-DD)")
	flag.BoolVar(&opts.JSON, "json", false, "Print results as JSON")

	flag.Parse()

	if opts.Target == "" {
		fmt.Println("Usage: similar -target <stock_id> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	return opts
}
