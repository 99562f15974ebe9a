package ingestion

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/observability"
	"lending-interest-lab/internal/storage"
)

// LiveCollector batches streamed rate observations and flushes them to storage
// when the batch is full or the flush interval elapses.
type LiveCollector struct {
	store         storage.RateObservationStore
	batchSize     int
	flushInterval time.Duration
	metrics       *observability.Metrics
	logger        zerolog.Logger

	buf    []*domain.RateObservation
	lastTs map[string]int64 // newest stored timestamp per ticker
}

// LiveCollectorOptions contains configuration for creating a LiveCollector.
type LiveCollectorOptions struct {
	Store         storage.RateObservationStore
	BatchSize     int           // Default: 100
	FlushInterval time.Duration // Default: 30s
	Metrics       *observability.Metrics
	Logger        zerolog.Logger
}

// NewLiveCollector creates a new collector.
func NewLiveCollector(opts LiveCollectorOptions) *LiveCollector {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	interval := opts.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &LiveCollector{
		store:         opts.Store,
		batchSize:     batch,
		flushInterval: interval,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		lastTs:        make(map[string]int64),
	}
}

// Run consumes observations until ctx is cancelled or in is closed,
// flushing what remains before returning.
func (c *LiveCollector) Run(ctx context.Context, in <-chan *domain.RateObservation) error {
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Parent context is gone; give the final flush its own deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := c.flush(flushCtx)
			cancel()
			if err != nil {
				return err
			}
			return ctx.Err()

		case o, ok := <-in:
			if !ok {
				return c.flush(ctx)
			}
			c.add(o)
			if len(c.buf) >= c.batchSize {
				if err := c.flush(ctx); err != nil {
					return err
				}
			}

		case <-ticker.C:
			if err := c.flush(ctx); err != nil {
				return err
			}
		}
	}
}

// add buffers o unless it is invalid or not newer than what was already seen for its ticker.
func (c *LiveCollector) add(o *domain.RateObservation) {
	if o == nil {
		return
	}
	if err := o.Validate(); err != nil {
		c.metrics.RecordIngestionError(FeedRates, "invalid")
		return
	}
	if last, ok := c.lastTs[o.Ticker]; ok && o.Timestamp <= last {
		return
	}
	c.lastTs[o.Ticker] = o.Timestamp
	c.buf = append(c.buf, o)
	c.metrics.SetLiveBuffer(len(c.buf))
}

func (c *LiveCollector) flush(ctx context.Context) error {
	if len(c.buf) == 0 {
		return nil
	}
	batch := c.buf
	c.buf = nil
	c.metrics.SetLiveBuffer(0)

	err := c.store.InsertBulk(ctx, batch)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Overlaps data stored before a restart; the stream moves on.
		c.metrics.RecordIngestionError(FeedRates, "duplicate")
		c.logger.Warn().Int("batch", len(batch)).Msg("live batch overlaps stored observations, dropped")
		return nil
	}
	if err != nil {
		c.metrics.RecordIngestionError(FeedRates, "store")
		c.logger.Error().Err(err).Int("batch", len(batch)).Msg("live flush failed")
		return err
	}
	c.metrics.RecordStored(FeedRates, len(batch), time.Now().Unix())
	c.logger.Debug().Int("batch", len(batch)).Msg("live flush")
	return nil
}
