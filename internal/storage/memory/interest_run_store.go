package memory

import (
	"context"
	"sort"
	"sync"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// InterestRunStore is an in-memory implementation of storage.InterestRunStore.
type InterestRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.InterestRun // keyed by run_id
}

// NewInterestRunStore creates a new in-memory interest run store.
func NewInterestRunStore() *InterestRunStore {
	return &InterestRunStore{
		data: make(map[string]*domain.InterestRun),
	}
}

// InsertBulk adds multiple runs atomically. Fails entire batch on any duplicate.
func (s *InterestRunStore) InsertBulk(_ context.Context, runs []*domain.InterestRun) error {
	if len(runs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(runs))

	for _, r := range runs {
		if r == nil || r.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.ID] = struct{}{}
	}

	for _, r := range runs {
		s.data[r.ID] = copyRun(r)
	}

	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *InterestRunStore) GetByID(_ context.Context, runID string) (*domain.InterestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRun(r), nil
}

// GetByTicker retrieves all runs for a lending ticker, ordered by start ASC.
func (s *InterestRunStore) GetByTicker(_ context.Context, ticker string) ([]*domain.InterestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.InterestRun
	for _, r := range s.data {
		if r.Ticker == ticker {
			result = append(result, copyRun(r))
		}
	}
	sortRuns(result)
	return result, nil
}

// GetAll retrieves all runs, ordered by (ticker, target, start) ASC.
func (s *InterestRunStore) GetAll(_ context.Context) ([]*domain.InterestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.InterestRun, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyRun(r))
	}
	sortRuns(result)
	return result, nil
}

// copyRun copies the run and its slices. Observations themselves are immutable and shared.
func copyRun(r *domain.InterestRun) *domain.InterestRun {
	rc := *r
	rc.Observations = append([]*domain.RateObservation(nil), r.Observations...)
	rc.InterestEntries = append([]*domain.PriceObservation(nil), r.InterestEntries...)
	return &rc
}

func sortRuns(runs []*domain.InterestRun) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Ticker != runs[j].Ticker {
			return runs[i].Ticker < runs[j].Ticker
		}
		if runs[i].TargetTicker != runs[j].TargetTicker {
			return runs[i].TargetTicker < runs[j].TargetTicker
		}
		if runs[i].Start != runs[j].Start {
			return runs[i].Start < runs[j].Start
		}
		return runs[i].ID < runs[j].ID
	})
}

var _ storage.InterestRunStore = (*InterestRunStore)(nil)
