package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/tunogya/twin/pkg/config"
	"github.com/tunogya/twin/pkg/logger"
	queue "github.com/tunogya/twin/pkg/queue/nats"
	"github.com/tunogya/twin/pkg/store/duckdb"
)

// Options holds writer worker options
type Options struct {
	ConfigPath string
	NATSUrl    string
	DuckDBPath string
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if opts.NATSUrl != "" {
		cfg.NATS.URL = opts.NATSUrl
	}
	if opts.DuckDBPath != "" {
		cfg.DuckDB.Path = opts.DuckDBPath
	}

	log := logger.New(cfg.Log)
	logger.SetGlobalLogger(log)

	log.Info().
		Str("nats", cfg.NATS.URL).
		Str("duckdb", cfg.DuckDB.Path).
		Msg("Starting writer worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize DuckDB
	st, err := duckdb.Open(ctx, cfg.DuckDB.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open DuckDB")
	}
	defer st.Close()
	log.Info().Msg("DuckDB schema initialized")

	// Initialize NATS
	natsClient, err := queue.NewClient(cfg.NATS.Client(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer natsClient.Close()

	if err := natsClient.CreateStream(ctx, queue.Subjects()); err != nil {
		log.Fatal().Err(err).Msg("Failed to create stream")
	}
	log.Info().Str("stream", cfg.NATS.Stream).Msg("NATS stream ready")

	w := &writer{store: st, log: log.With().Str("component", "writer").Logger()}

	snapshotConsumer, err := natsClient.Subscribe(ctx, queue.SubjectSnapshotWrite, cfg.NATS.ConsumerPrefix+"-snapshots", w.handleSnapshots)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to snapshot writes")
	}
	defer snapshotConsumer.Stop()

	priceConsumer, err := natsClient.Subscribe(ctx, queue.SubjectPriceWrite, cfg.NATS.ConsumerPrefix+"-prices", w.handlePrices)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to price writes")
	}
	defer priceConsumer.Stop()

	log.Info().Msg("Writer worker started, waiting for messages")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down writer worker")
}

// writer applies queued batches to DuckDB
type writer struct {
	store *duckdb.Store
	log   zerolog.Logger
}

func (w *writer) handleSnapshots(ctx context.Context, data []byte) error {
	batch, err := queue.DecodeSnapshotBatch(data)
	if err != nil {
		return fmt.Errorf("failed to decode snapshot batch: %w", err)
	}
	if len(batch.Snapshots) == 0 {
		return nil
	}

	if err := w.store.SnapshotRepo().UpsertBatch(ctx, batch.Snapshots); err != nil {
		return err
	}
	w.log.Info().Int("count", len(batch.Snapshots)).Msg("Upserted snapshots")
	return nil
}

func (w *writer) handlePrices(ctx context.Context, data []byte) error {
	batch, err := queue.DecodePriceBatch(data)
	if err != nil {
		return fmt.Errorf("failed to decode price batch: %w", err)
	}
	if len(batch.Bars) == 0 {
		return nil
	}

	if err := w.store.PriceRepo().InsertBatch(ctx, batch.Bars); err != nil {
		return err
	}
	w.log.Info().Int("count", len(batch.Bars)).Msg("Inserted prices")
	return nil
}

func parseFlags() Options {
	opts := Options{}

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	flag.StringVar(&opts.NATSUrl, "nats", "", "NATS server URL (overrides config)")
	flag.StringVar(&opts.DuckDBPath, "duckdb", "", "DuckDB file path (overrides config)")

	flag.Parse()

	return opts
}
