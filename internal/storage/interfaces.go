package storage

import (
	"context"

	"lending-interest-lab/internal/domain"
)

// RateObservationStore provides access to rate_observations storage.
type RateObservationStore interface {
	// InsertBulk adds multiple observations atomically. Fails entire batch on duplicate (ticker, timestamp).
	InsertBulk(ctx context.Context, obs []*domain.RateObservation) error

	// GetByTicker retrieves all observations for a ticker, ordered by timestamp ASC.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.RateObservation, error)

	// GetByTimeRange retrieves observations for a ticker within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, ticker string, start, end int64) ([]*domain.RateObservation, error)

	// ListTickers returns the distinct tickers stored, sorted ASC.
	ListTickers(ctx context.Context) ([]string, error)
}

// PriceObservationStore provides access to price_observations storage.
type PriceObservationStore interface {
	// InsertBulk adds multiple observations atomically. Fails entire batch on duplicate (ticker, timestamp).
	InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error

	// GetByTicker retrieves all observations for a ticker, ordered by timestamp ASC.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.PriceObservation, error)

	// GetByTimeRange retrieves observations for a ticker within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, ticker string, start, end int64) ([]*domain.PriceObservation, error)

	// ListTickers returns the distinct tickers stored, sorted ASC.
	ListTickers(ctx context.Context) ([]string, error)
}

// InterestRunStore provides access to interest_runs storage.
// Runs are stored with their lending observations and interest entries.
type InterestRunStore interface {
	// InsertBulk adds multiple runs atomically. Fails entire batch on duplicate run_id.
	// Runs must carry an ID.
	InsertBulk(ctx context.Context, runs []*domain.InterestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.InterestRun, error)

	// GetByTicker retrieves all runs for a lending ticker, ordered by start ASC.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.InterestRun, error)

	// GetAll retrieves all runs, ordered by (lending ticker, target ticker, start) ASC.
	GetAll(ctx context.Context) ([]*domain.InterestRun, error)
}

// DealRecordStore provides access to deal_records storage.
type DealRecordStore interface {
	// InsertBulk adds multiple deals atomically. Fails entire batch on duplicate deal_id.
	InsertBulk(ctx context.Context, deals []*domain.DealRecord) error

	// GetByRunID retrieves all deals for a run, ordered by strategy_id ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.DealRecord, error)

	// GetAll retrieves all deals, ordered by entry_time ASC, deal_id ASC.
	GetAll(ctx context.Context) ([]*domain.DealRecord, error)
}
