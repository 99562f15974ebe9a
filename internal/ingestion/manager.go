package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/observability"
	"lending-interest-lab/internal/storage"
)

// Manager orchestrates ingestion from sources to storage.
// It enforces ordering, drops repeated timestamps and invalid observations,
// and leaves duplicate rejection against stored data to the storage layer.
type Manager struct {
	rateSource  RateSource
	priceSource PriceSource

	rateStore  storage.RateObservationStore
	priceStore storage.PriceObservationStore
	progress   storage.IngestionProgressStore

	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	RateSource  RateSource
	PriceSource PriceSource

	RateStore  storage.RateObservationStore
	PriceStore storage.PriceObservationStore

	// Progress, when set, makes ingestion incremental: fetches start after
	// the last stored timestamp of each feed.
	Progress storage.IngestionProgressStore

	Metrics *observability.Metrics
	Logger  zerolog.Logger
	Now     func() time.Time
}

// NewManager creates a new ingestion manager with the provided sources and stores.
func NewManager(opts ManagerOptions) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		rateSource:  opts.RateSource,
		priceSource: opts.PriceSource,
		rateStore:   opts.RateStore,
		priceStore:  opts.PriceStore,
		progress:    opts.Progress,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		now:         now,
	}
}

// IngestRates fetches lending rates for ticker in [from, to] and stores them.
// Returns the number of observations stored.
func (m *Manager) IngestRates(ctx context.Context, ticker string, from, to int64) (int, error) {
	if m.rateSource == nil || m.rateStore == nil {
		return 0, nil
	}

	from, err := m.resume(ctx, FeedRates, ticker, from)
	if err != nil {
		return 0, err
	}
	if from > to {
		return 0, nil
	}

	obs, err := m.rateSource.Fetch(ctx, ticker, from, to)
	if err != nil {
		m.metrics.RecordIngestionError(FeedRates, "fetch")
		return 0, fmt.Errorf("fetch rates %s: %w", ticker, err)
	}
	m.metrics.RecordFetched(FeedRates, len(obs))

	valid := obs[:0:0]
	for _, o := range obs {
		if o == nil {
			continue
		}
		if err := o.Validate(); err != nil {
			m.metrics.RecordIngestionError(FeedRates, "invalid")
			m.logger.Warn().Err(err).Str("ticker", ticker).Int64("ts", o.Timestamp).Msg("dropping invalid rate observation")
			continue
		}
		valid = append(valid, o)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	SortRateObservations(valid)
	valid = DedupRateObservations(valid)
	if err := ValidateRateOrdering(valid); err != nil {
		return 0, err
	}

	if err := m.rateStore.InsertBulk(ctx, valid); err != nil {
		return 0, m.storeError(FeedRates, ticker, err)
	}

	last := valid[len(valid)-1].Timestamp
	if err := m.saveProgress(ctx, FeedRates, ticker, last); err != nil {
		return len(valid), err
	}

	m.metrics.RecordStored(FeedRates, len(valid), m.now().Unix())
	m.logger.Info().Str("feed", FeedRates).Str("ticker", ticker).Int("stored", len(valid)).Int64("last_ts", last).Msg("ingested")
	return len(valid), nil
}

// IngestPrices fetches close prices for ticker in [from, to] and stores them.
// Returns the number of observations stored.
func (m *Manager) IngestPrices(ctx context.Context, ticker string, from, to int64) (int, error) {
	if m.priceSource == nil || m.priceStore == nil {
		return 0, nil
	}

	from, err := m.resume(ctx, FeedPrices, ticker, from)
	if err != nil {
		return 0, err
	}
	if from > to {
		return 0, nil
	}

	obs, err := m.priceSource.Fetch(ctx, ticker, from, to)
	if err != nil {
		m.metrics.RecordIngestionError(FeedPrices, "fetch")
		return 0, fmt.Errorf("fetch prices %s: %w", ticker, err)
	}
	m.metrics.RecordFetched(FeedPrices, len(obs))

	valid := obs[:0:0]
	for _, o := range obs {
		if o == nil {
			continue
		}
		// Candles with no trades carry zero volume.
		if err := o.Validate(); err != nil {
			m.metrics.RecordIngestionError(FeedPrices, "invalid")
			m.logger.Debug().Err(err).Str("ticker", ticker).Int64("ts", o.Timestamp).Msg("dropping invalid price observation")
			continue
		}
		valid = append(valid, o)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	SortPriceObservations(valid)
	valid = DedupPriceObservations(valid)
	if err := ValidatePriceOrdering(valid); err != nil {
		return 0, err
	}

	if err := m.priceStore.InsertBulk(ctx, valid); err != nil {
		return 0, m.storeError(FeedPrices, ticker, err)
	}

	last := valid[len(valid)-1].Timestamp
	if err := m.saveProgress(ctx, FeedPrices, ticker, last); err != nil {
		return len(valid), err
	}

	m.metrics.RecordStored(FeedPrices, len(valid), m.now().Unix())
	m.logger.Info().Str("feed", FeedPrices).Str("ticker", ticker).Int("stored", len(valid)).Int64("last_ts", last).Msg("ingested")
	return len(valid), nil
}

// resume moves from past the last stored timestamp of the feed.
func (m *Manager) resume(ctx context.Context, feed, ticker string, from int64) (int64, error) {
	if m.progress == nil {
		return from, nil
	}
	p, err := m.progress.GetLastProcessed(ctx, feed, ticker)
	if errors.Is(err, storage.ErrNotFound) {
		return from, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load %s progress for %s: %w", feed, ticker, err)
	}
	if p.LastTimestamp >= from {
		return p.LastTimestamp + 1, nil
	}
	return from, nil
}

func (m *Manager) saveProgress(ctx context.Context, feed, ticker string, last int64) error {
	if m.progress == nil {
		return nil
	}
	p, err := m.progress.GetLastProcessed(ctx, feed, ticker)
	if err == nil && p.LastTimestamp >= last {
		return nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load %s progress for %s: %w", feed, ticker, err)
	}
	err = m.progress.SetLastProcessed(ctx, &storage.IngestionProgress{Source: feed, Ticker: ticker, LastTimestamp: last})
	if err != nil {
		return fmt.Errorf("save %s progress for %s: %w", feed, ticker, err)
	}
	return nil
}

func (m *Manager) storeError(feed, ticker string, err error) error {
	if errors.Is(err, storage.ErrDuplicateKey) {
		m.metrics.RecordIngestionError(feed, "duplicate")
		m.logger.Warn().Str("feed", feed).Str("ticker", ticker).Msg("batch overlaps stored observations")
	} else {
		m.metrics.RecordIngestionError(feed, "store")
	}
	return fmt.Errorf("store %s %s: %w", feed, ticker, err)
}

// IngestPair ingests the lending and target series of a pair over its range.
// A pair without a target only ingests rates.
func (m *Manager) IngestPair(ctx context.Context, p domain.Pair) (rates, prices int, err error) {
	rates, err = m.IngestRates(ctx, p.LendingTicker, p.From, p.To)
	if err != nil || p.TargetTicker == "" {
		return rates, 0, err
	}
	prices, err = m.IngestPrices(ctx, p.TargetTicker, p.From, p.To)
	return rates, prices, err
}
