// Command report regenerates the report files from the stored interest runs
// and deal records without rerunning the analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"lending-interest-lab/internal/app"
	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/reporting"
	"lending-interest-lab/internal/storage/backend"
	"lending-interest-lab/internal/verification"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	outputDir := flag.String("output-dir", "", "Report output directory (overrides report.output_dir)")
	generatedAt := flag.String("generated-at", "", "Fixed generation time (RFC3339) for reproducible output")
	stdout := flag.Bool("stdout", false, "Print the markdown report instead of writing files")
	verify := flag.Bool("verify", false, "Re-evaluate every stored deal from its run before reporting")
	flag.Parse()

	cfg, log, err := app.Setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log = log.With().Str("cmd", "report").Logger()
	if *outputDir != "" {
		cfg.Report.OutputDir = *outputDir
	}

	ctx := context.Background()
	stores, err := backend.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage")
	}
	defer stores.Close()

	if *verify {
		if !verifyDeals(ctx, stores, cfg.DealConfigs(), log) {
			stores.Close()
			os.Exit(2)
		}
	}

	gen := reporting.NewGenerator(stores.Runs, stores.Deals)
	if *generatedAt != "" {
		ts, err := time.Parse(time.RFC3339, *generatedAt)
		if err != nil {
			log.Fatal().Err(err).Msg("-generated-at")
		}
		gen = gen.WithClock(func() time.Time { return ts.UTC() })
	}

	report, err := gen.Generate(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("generate report")
	}

	if *stdout {
		fmt.Print(reporting.RenderMarkdown(report))
		return
	}
	if err := reporting.WriteFiles(cfg.Report.OutputDir, report); err != nil {
		log.Fatal().Err(err).Msg("write report")
	}
	log.Info().
		Str("dir", cfg.Report.OutputDir).
		Int("runs", report.Summary.TotalRuns).
		Int("deals", report.Summary.TotalDeals).
		Str("data_version", report.Reproducibility.DataVersion).
		Msg("report written")
}

// verifyDeals replays stored deals and logs each divergence.
// Returns false when any deal fails to reproduce.
func verifyDeals(ctx context.Context, stores *backend.Stores, configs []domain.DealConfig, log zerolog.Logger) bool {
	v, err := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		RunStore:    stores.Runs,
		DealStore:   stores.Deals,
		DealConfigs: configs,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build verifier")
	}

	report, err := v.VerifyAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("verify deals")
	}

	for _, r := range report.Results {
		if r.Match {
			continue
		}
		for _, d := range r.Divergences {
			log.Warn().
				Str("deal_id", r.DealID).
				Str("run_id", r.RunID).
				Str("strategy", r.StrategyID).
				Str("field", d.Field).
				Interface("stored", d.Expected).
				Interface("replayed", d.Actual).
				Msg("deal diverged")
		}
	}
	log.Info().
		Int("total", report.TotalDeals).
		Int("matched", report.MatchedDeals).
		Int("divergent", report.DivergentDeals).
		Msg("verification finished")
	return report.AllMatch()
}
