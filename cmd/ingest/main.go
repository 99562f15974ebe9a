// Command ingest loads lending rates and target prices into the configured
// store, from Bitfinex or CSV exports. With -live it streams the funding
// ticker until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"lending-interest-lab/internal/app"
	"lending-interest-lab/internal/config"
	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/ingestion"
	"lending-interest-lab/internal/ingestion/bitfinex"
	"lending-interest-lab/internal/observability"
	"lending-interest-lab/internal/reporting"
	"lending-interest-lab/internal/storage/backend"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	from := flag.String("from", "", "Range start (2006-01-02), overrides the configured pair ranges")
	to := flag.String("to", "", "Range end (2006-01-02), overrides the configured pair ranges")
	ratesCSV := flag.String("rates-csv", "", "Read lending rates from this CSV instead of Bitfinex")
	pricesCSV := flag.String("prices-csv", "", "Read candles from this CSV instead of Bitfinex")
	live := flag.Bool("live", false, "Stream the funding ticker into the rate store")
	flushInterval := flag.Duration("flush-interval", 30*time.Second, "Live mode: flush interval")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	cfg, log, err := app.Setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log = log.With().Str("cmd", "ingest").Logger()

	m := observability.NewMetrics(observability.DefaultNamespace, nil)
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, m, log)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, err := backend.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage")
	}
	defer stores.Close()

	if *live {
		err = runLive(ctx, cfg, stores, m, log, *flushInterval)
	} else {
		err = runBackfill(ctx, cfg, stores, m, log, app.Sources{RatesCSV: *ratesCSV, PricesCSV: *pricesCSV}, *from, *to)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("ingestion failed")
		stores.Close()
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}

func runBackfill(
	ctx context.Context,
	cfg *config.Config,
	stores *backend.Stores,
	m *observability.Metrics,
	log zerolog.Logger,
	src app.Sources,
	from, to string,
) error {
	pairs, err := cfg.Pairs()
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return errors.New("no pairs configured (analysis.pairs)")
	}
	if pairs, err = overrideRange(pairs, from, to); err != nil {
		return err
	}
	pairs = app.ResolvePairs(pairs, time.Now(), time.Duration(cfg.Server.LookbackDays)*24*time.Hour)

	mgr := app.NewIngestionManager(cfg, src, stores, m, log)

	var failed []string
	for _, p := range pairs {
		rates, prices, err := mgr.IngestPair(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Str("pair", p.String()).Msg("pair ingestion failed")
			failed = append(failed, p.String())
			continue
		}
		log.Info().
			Str("pair", p.String()).
			Str("from", reporting.FormatTimestamp(p.From)).
			Str("to", reporting.FormatTimestamp(p.To)).
			Int("rates", rates).
			Int("prices", prices).
			Msg("pair ingested")
	}
	if len(failed) > 0 {
		return fmt.Errorf("ingestion failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func runLive(
	ctx context.Context,
	cfg *config.Config,
	stores *backend.Stores,
	m *observability.Metrics,
	log zerolog.Logger,
	flushInterval time.Duration,
) error {
	pairs, err := cfg.Pairs()
	if err != nil {
		return err
	}
	currencies := lendingTickers(pairs)
	if len(currencies) == 0 {
		return errors.New("no pairs configured (analysis.pairs)")
	}

	stream := bitfinex.NewFundingTickerStream(cfg.Bitfinex.WSURL, nil,
		bitfinex.WithStreamMetrics(m),
		bitfinex.WithLogger(log.With().Str("component", "stream").Logger()),
	)
	defer stream.Close()

	obs, err := stream.Subscribe(ctx, currencies)
	if err != nil {
		return fmt.Errorf("subscribe funding ticker: %w", err)
	}
	log.Info().Strs("currencies", currencies).Msg("streaming funding ticker")

	collector := ingestion.NewLiveCollector(ingestion.LiveCollectorOptions{
		Store:         stores.Rates,
		FlushInterval: flushInterval,
		Metrics:       m,
		Logger:        log.With().Str("component", "live").Logger(),
	})
	return collector.Run(ctx, obs)
}

// overrideRange replaces every pair's range with the -from/-to flags when set.
func overrideRange(pairs []domain.Pair, from, to string) ([]domain.Pair, error) {
	var f, t int64
	var err error
	if from != "" {
		if f, err = reporting.ParseDate(from); err != nil {
			return nil, fmt.Errorf("-from: %w", err)
		}
	}
	if to != "" {
		if t, err = reporting.ParseDate(to); err != nil {
			return nil, fmt.Errorf("-to: %w", err)
		}
	}
	for i := range pairs {
		if f != 0 {
			pairs[i].From = f
		}
		if t != 0 {
			pairs[i].To = t
		}
	}
	return pairs, nil
}

func lendingTickers(pairs []domain.Pair) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range pairs {
		if !seen[p.LendingTicker] {
			seen[p.LendingTicker] = true
			out = append(out, p.LendingTicker)
		}
	}
	return out
}

func serveMetrics(addr string, m *observability.Metrics, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server")
	}
}
