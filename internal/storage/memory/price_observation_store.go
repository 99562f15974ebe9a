package memory

import (
	"context"
	"sort"
	"sync"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// PriceObservationStore is an in-memory implementation of storage.PriceObservationStore.
type PriceObservationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceObservation // keyed by (ticker, timestamp)
}

// NewPriceObservationStore creates a new in-memory price observation store.
func NewPriceObservationStore() *PriceObservationStore {
	return &PriceObservationStore{
		data: make(map[string]*domain.PriceObservation),
	}
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate.
func (s *PriceObservationStore) InsertBulk(_ context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(obs))

	// First pass: check for duplicates (existing + intra-batch)
	for _, o := range obs {
		if o == nil || o.Ticker == "" {
			return storage.ErrInvalidInput
		}
		key := observationKey(o.Ticker, o.Timestamp)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, o := range obs {
		oCopy := *o
		s.data[observationKey(o.Ticker, o.Timestamp)] = &oCopy
	}

	return nil
}

// GetByTicker retrieves all observations for a ticker, ordered by timestamp ASC.
func (s *PriceObservationStore) GetByTicker(_ context.Context, ticker string) ([]*domain.PriceObservation, error) {
	return s.collect(ticker, func(*domain.PriceObservation) bool { return true }), nil
}

// GetByTimeRange retrieves observations for a ticker within [start, end] (inclusive).
func (s *PriceObservationStore) GetByTimeRange(_ context.Context, ticker string, start, end int64) ([]*domain.PriceObservation, error) {
	return s.collect(ticker, func(o *domain.PriceObservation) bool {
		return o.Timestamp >= start && o.Timestamp <= end
	}), nil
}

// ListTickers returns the distinct tickers stored, sorted ASC.
func (s *PriceObservationStore) ListTickers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, o := range s.data {
		seen[o.Ticker] = struct{}{}
	}
	return sortedKeys(seen), nil
}

func (s *PriceObservationStore) collect(ticker string, keep func(*domain.PriceObservation) bool) []*domain.PriceObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceObservation
	for _, o := range s.data {
		if o.Ticker == ticker && keep(o) {
			oCopy := *o
			result = append(result, &oCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result
}

var _ storage.PriceObservationStore = (*PriceObservationStore)(nil)
