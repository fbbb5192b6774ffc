package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tunogya/twin/pkg/config"
	"github.com/tunogya/twin/pkg/data"
	"github.com/tunogya/twin/pkg/logger"
	"github.com/tunogya/twin/pkg/model"
	queue "github.com/tunogya/twin/pkg/queue/nats"
	"github.com/tunogya/twin/pkg/store/duckdb"
	"github.com/tunogya/twin/pkg/store/sqlite"
)

// Options holds load configuration
type Options struct {
	ConfigPath string

	// Sources: CSV files or an existing SQLite stock database
	SnapshotsCSV string
	PricesCSV    string
	SQLitePath   string

	// Sink: DuckDB directly, or the NATS queue for cmd/writer
	Publish   bool
	BatchSize int
}

// sink receives loaded batches
type sink interface {
	Snapshots(ctx context.Context, batch []model.Snapshot) error
	Bars(ctx context.Context, batch []model.PriceBar) error
	Close() error
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, log); err != nil {
		log.Fatal().Err(err).Msg("Load failed")
	}
}

func run(ctx context.Context, cfg *config.Config, opts Options, log zerolog.Logger) error {
	start := time.Now()

	snapshots, bars, err := readSource(ctx, opts)
	if err != nil {
		return err
	}
	log.Info().
		Int("snapshots", len(snapshots)).
		Int("bars", len(bars)).
		Msg("Read source data")

	out, err := openSink(ctx, cfg, opts, log)
	if err != nil {
		return err
	}
	defer out.Close()

	for i, batch := range chunks(snapshots, opts.BatchSize) {
		if err := out.Snapshots(ctx, batch); err != nil {
			return fmt.Errorf("failed to write snapshot batch %d: %w", i, err)
		}
	}
	for i, batch := range chunks(bars, opts.BatchSize) {
		if err := out.Bars(ctx, batch); err != nil {
			return fmt.Errorf("failed to write price batch %d: %w", i, err)
		}
		if (i+1)%10 == 0 {
			log.Info().Int("written", (i+1)*opts.BatchSize).Int("total", len(bars)).Msg("Writing prices")
		}
	}

	log.Info().
		Int("snapshots", len(snapshots)).
		Int("bars", len(bars)).
		Bool("published", opts.Publish).
		Dur("elapsed", time.Since(start)).
		Msg("Load completed")
	return nil
}

func readSource(ctx context.Context, opts Options) ([]model.Snapshot, []model.PriceBar, error) {
	if opts.SQLitePath != "" {
		st, err := sqlite.Open(opts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		defer st.Close()

		snapshots, err := st.Snapshots(ctx)
		if err != nil {
			return nil, nil, err
		}
		series, err := st.PriceHistory(ctx, time.Time{})
		if err != nil {
			return nil, nil, err
		}
		return snapshots, flatten(series), nil
	}

	p := data.NewCSVProvider(opts.SnapshotsCSV, opts.PricesCSV)
	snapshots, err := p.Snapshots(ctx)
	if err != nil {
		return nil, nil, err
	}
	series, err := p.PriceHistory(ctx, time.Time{})
	if err != nil {
		return nil, nil, err
	}
	return snapshots, flatten(series), nil
}

func flatten(series []model.PriceSeries) []model.PriceBar {
	var bars []model.PriceBar
	for _, s := range series {
		for _, pt := range s.Points {
			bars = append(bars, model.PriceBar{InstrumentID: s.InstrumentID, Date: pt.Date, Close: pt.Close})
		}
	}
	return bars
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		out = append(out, items[i:end])
	}
	return out
}

func openSink(ctx context.Context, cfg *config.Config, opts Options, log zerolog.Logger) (sink, error) {
	if opts.Publish {
		client, err := queue.NewClient(cfg.NATS.Client(), log)
		if err != nil {
			return nil, err
		}
		if err := client.CreateStream(ctx, queue.Subjects()); err != nil {
			client.Close()
			return nil, err
		}
		return &queueSink{client: client}, nil
	}

	st, err := duckdb.Open(ctx, cfg.DuckDB.Path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.DuckDB.Path).Msg("DuckDB schema initialized")
	return &duckSink{store: st}, nil
}

type duckSink struct {
	store *duckdb.Store
}

func (s *duckSink) Snapshots(ctx context.Context, batch []model.Snapshot) error {
	return s.store.SnapshotRepo().UpsertBatch(ctx, batch)
}

func (s *duckSink) Bars(ctx context.Context, batch []model.PriceBar) error {
	return s.store.PriceRepo().InsertBatch(ctx, batch)
}

func (s *duckSink) Close() error {
	return s.store.Close()
}

type queueSink struct {
	client *queue.Client
}

func (s *queueSink) Snapshots(ctx context.Context, batch []model.Snapshot) error {
	return s.client.PublishJSON(ctx, queue.SubjectSnapshotWrite, queue.SnapshotBatchMsg{Snapshots: batch})
}

func (s *queueSink) Bars(ctx context.Context, batch []model.PriceBar) error {
	return s.client.PublishJSON(ctx, queue.SubjectPriceWrite, queue.PriceBatchMsg{Bars: batch})
}

func (s *queueSink) Close() error {
	s.client.Close()
	return nil
}

func parseFlags() Options {
	opts := Options{}

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	flag.StringVar(&opts.SnapshotsCSV, "snapshots", "", "Path to snapshots CSV file")
	flag.StringVar(&opts.PricesCSV, "prices", "", "Path to daily prices CSV file (stock_id,date,close)")
	flag.StringVar(&opts.SQLitePath, "sqlite", "", "Import from an existing SQLite stock database instead of CSV")
	flag.BoolVar(&opts.Publish, "publish", false, "Publish batches to NATS for the writer instead of writing DuckDB")
	flag.IntVar(&opts.BatchSize, "batch", 1000, "Batch size for writes")

	flag.Parse()

	if opts.SnapshotsCSV == "" && opts.SQLitePath == "" {
		fmt.Println("Usage: load (-snapshots <path> [-prices <path>] | -sqlite <path>) [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}

	return opts
}
