// Package stub provides in-memory ingestion sources and deterministic
// synthetic series for tests and fixtures.
package stub

import (
	"context"

	"lending-interest-lab/internal/domain"
)

// StubRateSource returns fixed in-memory rate observations.
// Observations can be intentionally unordered to test sorting.
// Implements ingestion.RateSource interface.
type StubRateSource struct {
	obs []*domain.RateObservation
	err error
}

// NewStubRateSource creates a new stub rate source with the given observations.
func NewStubRateSource(obs []*domain.RateObservation) *StubRateSource {
	return &StubRateSource{obs: obs}
}

// NewFailingRateSource returns a source whose Fetch always fails with err.
func NewFailingRateSource(err error) *StubRateSource {
	return &StubRateSource{err: err}
}

// Fetch returns observations matching the ticker and time range.
// Returns copies to prevent mutation.
func (s *StubRateSource) Fetch(_ context.Context, ticker string, from, to int64) ([]*domain.RateObservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []*domain.RateObservation
	for _, o := range s.obs {
		if o.Ticker == ticker && o.Timestamp >= from && o.Timestamp <= to {
			c := *o
			result = append(result, &c)
		}
	}
	return result, nil
}

// StubPriceSource returns fixed in-memory price observations.
// Implements ingestion.PriceSource interface.
type StubPriceSource struct {
	obs []*domain.PriceObservation
}

// NewStubPriceSource creates a new stub price source.
func NewStubPriceSource(obs []*domain.PriceObservation) *StubPriceSource {
	return &StubPriceSource{obs: obs}
}

// Fetch returns observations matching the ticker and time range.
func (s *StubPriceSource) Fetch(_ context.Context, ticker string, from, to int64) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation
	for _, o := range s.obs {
		if o.Ticker == ticker && o.Timestamp >= from && o.Timestamp <= to {
			c := *o
			result = append(result, &c)
		}
	}
	return result, nil
}
