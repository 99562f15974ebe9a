// Command pipeline runs the analysis end to end: load input data, find and
// classify interest runs, align them, evaluate deals and write the reports.
//
// Input is deterministic fixture data (-use-fixtures), CSV exports
// (-rates-csv/-prices-csv) or whatever the configured store already holds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lending-interest-lab/internal/app"
	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/pipeline"
	"lending-interest-lab/internal/storage/backend"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	outputDir := flag.String("output-dir", "", "Report output directory (overrides report.output_dir)")
	useFixtures := flag.Bool("use-fixtures", false, "Analyse deterministic fixture data in memory")
	ratesCSV := flag.String("rates-csv", "", "Ingest lending rates from this CSV before the analysis")
	pricesCSV := flag.String("prices-csv", "", "Ingest candles from this CSV before the analysis")
	flag.Parse()

	cfg, log, err := app.Setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log = log.With().Str("cmd", "pipeline").Logger()
	if *outputDir != "" {
		cfg.Report.OutputDir = *outputDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *useFixtures {
		cfg.Storage.Backend = "memory"
		cfg.Storage.ClickhouseDSN = ""
	}
	stores, err := backend.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage")
	}
	defer stores.Close()

	var pairs []domain.Pair
	switch {
	case *useFixtures:
		pairs, err = pipeline.LoadFixtures(ctx, stores.Rates, stores.Prices)
		if err != nil {
			log.Fatal().Err(err).Msg("load fixtures")
		}
		cfg.Analysis.WindowDuration = 24 * time.Hour
		cfg.Analysis.MinRunLength = 10
	default:
		pairs, err = cfg.Pairs()
		if err != nil {
			log.Fatal().Err(err).Msg("pairs")
		}
		if *ratesCSV != "" || *pricesCSV != "" {
			mgr := app.NewIngestionManager(cfg, app.Sources{RatesCSV: *ratesCSV, PricesCSV: *pricesCSV, Offline: true}, stores, nil, log)
			for _, p := range pairs {
				// An open range takes the whole file.
				if p.To == 0 {
					p.To = math.MaxInt64
				}
				if _, _, err := mgr.IngestPair(ctx, p); err != nil {
					log.Fatal().Err(err).Str("pair", p.String()).Msg("ingest csv")
				}
			}
		}
	}
	if len(pairs) == 0 {
		log.Fatal().Msg("no pairs to analyse: configure analysis.pairs or use -use-fixtures")
	}

	start := time.Now()
	report, result, err := app.NewPipeline(cfg, pairs, stores, nil, log).Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Msg("pipeline cancelled")
			return
		}
		log.Error().Err(err).Msg("pipeline failed")
		stores.Close()
		os.Exit(1)
	}

	for _, pr := range result.Pairs {
		ev := log.Info()
		if pr.Err != "" {
			ev = log.Warn().Str("err", pr.Err)
		}
		ev.Str("pair", pr.Pair.String()).
			Int("growing", len(pr.Grown)).
			Int("non_growing", len(pr.NonGrown)).
			Int("deals", len(pr.Deals)).
			Msg("pair analysed")
	}
	log.Info().
		Dur("took", time.Since(start)).
		Int("runs_created", result.RunsCreated).
		Int("deals_created", result.DealsCreated).
		Int("total_runs", report.Summary.TotalRuns).
		Bool("checks_passed", report.DataQuality.AllChecksPassed).
		Str("dir", cfg.Report.OutputDir).
		Msg("pipeline completed")
}
