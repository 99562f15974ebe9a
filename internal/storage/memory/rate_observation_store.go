package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// RateObservationStore is an in-memory implementation of storage.RateObservationStore.
type RateObservationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RateObservation // keyed by (ticker, timestamp)
}

// NewRateObservationStore creates a new in-memory rate observation store.
func NewRateObservationStore() *RateObservationStore {
	return &RateObservationStore{
		data: make(map[string]*domain.RateObservation),
	}
}

// observationKey generates a unique key for an observation.
func observationKey(ticker string, timestamp int64) string {
	return fmt.Sprintf("%s|%d", ticker, timestamp)
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate.
func (s *RateObservationStore) InsertBulk(_ context.Context, obs []*domain.RateObservation) error {
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
func (s *RateObservationStore) GetByTicker(_ context.Context, ticker string) ([]*domain.RateObservation, error) {
	return s.collect(ticker, func(*domain.RateObservation) bool { return true }), nil
}

// GetByTimeRange retrieves observations for a ticker within [start, end] (inclusive).
func (s *RateObservationStore) GetByTimeRange(_ context.Context, ticker string, start, end int64) ([]*domain.RateObservation, error) {
	return s.collect(ticker, func(o *domain.RateObservation) bool {
		return o.Timestamp >= start && o.Timestamp <= end
	}), nil
}

// ListTickers returns the distinct tickers stored, sorted ASC.
func (s *RateObservationStore) ListTickers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, o := range s.data {
		seen[o.Ticker] = struct{}{}
	}
	return sortedKeys(seen), nil
}

func (s *RateObservationStore) collect(ticker string, keep func(*domain.RateObservation) bool) []*domain.RateObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RateObservation
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

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ storage.RateObservationStore = (*RateObservationStore)(nil)
