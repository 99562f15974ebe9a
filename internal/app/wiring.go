// Package app wires configuration, stores, sources and the analysis
// pipeline together for the binaries.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"lending-interest-lab/internal/config"
	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/ingestion"
	"lending-interest-lab/internal/ingestion/bitfinex"
	"lending-interest-lab/internal/logger"
	"lending-interest-lab/internal/observability"
	"lending-interest-lab/internal/orchestrator"
	"lending-interest-lab/internal/pipeline"
	"lending-interest-lab/internal/reporting"
	"lending-interest-lab/internal/storage/backend"
)

// Setup loads the configuration at path and builds the logger it selects.
func Setup(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

// NewBitfinexClient builds the REST client from the bitfinex section.
func NewBitfinexClient(cfg *config.Config, m *observability.Metrics) *bitfinex.Client {
	b := cfg.Bitfinex
	return bitfinex.NewClient(
		bitfinex.WithBaseURLs(b.V1URL, b.V2URL),
		bitfinex.WithTimeout(b.Timeout),
		bitfinex.WithMaxRetries(b.MaxRetries),
		bitfinex.WithRetryDelay(b.RetryDelay),
		bitfinex.WithPageLimit(b.PageLimit),
		bitfinex.WithPageDelay(b.PageDelay),
		bitfinex.WithLendsLimit(b.LendsLimit),
		bitfinex.WithMetrics(m),
	)
}

// Sources selects the ingestion sources. Non-empty CSV paths replace the
// corresponding Bitfinex feed. Offline leaves feeds without a CSV empty.
type Sources struct {
	RatesCSV  string
	PricesCSV string
	Offline   bool
}

// NewIngestionManager builds a manager that stores into s.
func NewIngestionManager(cfg *config.Config, src Sources, s *backend.Stores, m *observability.Metrics, log zerolog.Logger) *ingestion.Manager {
	var (
		rates  ingestion.RateSource
		prices ingestion.PriceSource
		client *bitfinex.Client
	)
	if !src.Offline && (src.RatesCSV == "" || src.PricesCSV == "") {
		client = NewBitfinexClient(cfg, m)
	}

	switch {
	case src.RatesCSV != "":
		rates = ingestion.NewCSVRateSource(src.RatesCSV)
	case client != nil:
		rates = bitfinex.NewRateSource(client)
	}
	switch {
	case src.PricesCSV != "":
		prices = ingestion.NewCSVPriceSource(src.PricesCSV)
	case client != nil:
		prices = bitfinex.NewPriceSource(client, cfg.Bitfinex.Timeframe, cfg.Bitfinex.Quote)
	}

	return ingestion.NewManager(ingestion.ManagerOptions{
		RateSource:  rates,
		PriceSource: prices,
		RateStore:   s.Rates,
		PriceStore:  s.Prices,
		Progress:    s.Progress,
		Metrics:     m,
		Logger:      log.With().Str("component", "ingestion").Logger(),
	})
}

// NewOrchestrator builds the analysis orchestrator for pairs.
func NewOrchestrator(cfg *config.Config, pairs []domain.Pair, s *backend.Stores, m *observability.Metrics, log zerolog.Logger) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Options{
		RateStore:      s.Rates,
		PriceStore:     s.Prices,
		RunStore:       s.Runs,
		DealStore:      s.Deals,
		Pairs:          pairs,
		WindowDuration: cfg.WindowSeconds(),
		MinRunLength:   cfg.Analysis.MinRunLength,
		DealConfigs:    cfg.DealConfigs(),
		Parallelism:    cfg.Analysis.Parallelism,
		Metrics:        m,
		Logger:         log.With().Str("component", "orchestrator").Logger(),
	})
}

// NewPipeline builds the end-to-end pipeline writing reports to the
// configured output directory.
func NewPipeline(cfg *config.Config, pairs []domain.Pair, s *backend.Stores, m *observability.Metrics, log zerolog.Logger) *pipeline.Pipeline {
	suff := pipeline.DefaultSufficiencyConfig(cfg.WindowSeconds())
	suff.MinObservations = cfg.Analysis.MinObservations
	suff.MinCoverageDays = cfg.Analysis.MinCoverageDays

	return pipeline.New(
		NewOrchestrator(cfg, pairs, s, m, log),
		reporting.NewGenerator(s.Runs, s.Deals),
		pairs,
		cfg.Report.OutputDir,
	).
		WithSufficiencyChecker(pipeline.NewSufficiencyChecker(s.Rates, s.Prices, suff)).
		WithMetrics(m).
		WithLogger(log.With().Str("component", "pipeline").Logger())
}
