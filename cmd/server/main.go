package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tunogya/twin/pkg/api"
	"github.com/tunogya/twin/pkg/config"
	"github.com/tunogya/twin/pkg/logger"
	"github.com/tunogya/twin/pkg/similarity"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	log := logger.New(cfg.Log)
	logger.SetGlobalLogger(log)

	ctx := context.Background()
	src, err := cfg.OpenSource(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Provider).Msg("Failed to open data provider")
	}
	defer src.Close()

	srvCfg := api.Config{
		Addr:           cfg.HTTP.Addr,
		RequestTimeout: cfg.HTTP.RequestTimeout.Duration,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Finder:         similarity.NewEngine(src.Provider, cfg.Engine, log),
		Log:            log,
	}
	if src.DuckDB != nil {
		srvCfg.Presets = src.DuckDB.PresetRepo()
	}
	srv := api.New(srvCfg)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info().
		Str("provider", cfg.Provider).
		Bool("presets", srvCfg.Presets != nil).
		Msg("Server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}
