// Command server serves the HTTP API over the stored analysis and runs
// scheduled ingest and analyze cycles:
//   - Ingestion (cron): lends and candles for every configured pair
//   - Analysis (same cycle): runs, alignment, deals, report files
//   - API (continuous): /health, /metrics, /api/v1/...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lending-interest-lab/internal/api"
	"lending-interest-lab/internal/app"
	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/observability"
	"lending-interest-lab/internal/pipeline"
	"lending-interest-lab/internal/storage/backend"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	runOnStart := flag.Bool("run-on-start", true, "Run one cycle immediately after startup")
	noIngest := flag.Bool("no-ingest", false, "Only analyse stored data, never call the exchange")
	flag.Parse()

	cfg, log, err := app.Setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log = log.With().Str("cmd", "server").Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, err := backend.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage")
	}
	defer stores.Close()

	m := observability.NewMetrics(observability.DefaultNamespace, nil)

	deps := app.CycleDeps{
		Config: cfg,
		NewPipeline: func(pairs []domain.Pair) *pipeline.Pipeline {
			return app.NewPipeline(cfg, pairs, stores, m, log)
		},
		Logger: log.With().Str("component", "cycle").Logger(),
	}
	if !*noIngest {
		deps.Manager = app.NewIngestionManager(cfg, app.Sources{}, stores, m, log)
	}
	cycle, err := app.NewCycle(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("build cycle")
	}

	sched, err := app.NewScheduler(ctx, cfg.Server.Schedule, cycle, log.With().Str("component", "scheduler").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}

	handler := api.NewHandler(stores.Runs, stores.Deals, sched, log.With().Str("component", "api").Logger())
	srv := api.NewServer(handler, m, log,
		api.WithAddr(cfg.Server.Addr),
		api.WithTimeouts(0, 0, cfg.Server.ShutdownTimeout),
	)
	srvErr := srv.Start()

	sched.Start()
	if *runOnStart {
		go sched.RunNow()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err, ok := <-srvErr:
		if ok && err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
		cancel()
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+30*time.Second)
	defer stopCancel()

	if err := srv.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("http shutdown")
	}

	stopped := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-stopCtx.Done():
		log.Warn().Msg("cycle did not finish before the shutdown deadline")
	}
	log.Info().Msg("shutdown complete")
}
