// Package ingestion moves lending-rate and price observations from external
// sources into storage.
package ingestion

import (
	"context"

	"lending-interest-lab/internal/domain"
)

// RateSource provides lending-rate observations from external sources.
type RateSource interface {
	// Fetch returns observations for a ticker within [from, to] (inclusive, Unix seconds).
	// Observations may be unordered or repeated; Manager enforces ordering.
	Fetch(ctx context.Context, ticker string, from, to int64) ([]*domain.RateObservation, error)
}

// PriceSource provides close-price observations from external sources.
type PriceSource interface {
	// Fetch returns observations for a ticker within [from, to] (inclusive, Unix seconds).
	Fetch(ctx context.Context, ticker string, from, to int64) ([]*domain.PriceObservation, error)
}

// Feed names used for progress tracking and metrics.
const (
	FeedRates  = "rates"
	FeedPrices = "prices"
)
