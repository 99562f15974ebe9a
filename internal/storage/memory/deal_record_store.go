package memory

import (
	"context"
	"sort"
	"sync"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// DealRecordStore is an in-memory implementation of storage.DealRecordStore.
type DealRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DealRecord // keyed by deal_id
}

// NewDealRecordStore creates a new in-memory deal record store.
func NewDealRecordStore() *DealRecordStore {
	return &DealRecordStore{
		data: make(map[string]*domain.DealRecord),
	}
}

// InsertBulk adds multiple deals atomically. Fails entire batch on any duplicate.
func (s *DealRecordStore) InsertBulk(_ context.Context, deals []*domain.DealRecord) error {
	if len(deals) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(deals))

	// First pass: check for duplicates (existing + intra-batch)
	for _, d := range deals {
		if d == nil || d.DealID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[d.DealID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[d.DealID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[d.DealID] = struct{}{}
	}

	// Second pass: insert all
	for _, d := range deals {
		copy := *d
		s.data[d.DealID] = &copy
	}

	return nil
}

// GetByRunID retrieves all deals for a run, ordered by strategy_id ASC.
func (s *DealRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.DealRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DealRecord
	for _, d := range s.data {
		if d.RunID == runID {
			copy := *d
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StrategyID < result[j].StrategyID
	})

	return result, nil
}

// GetAll retrieves all deals, ordered by entry_time ASC, deal_id ASC.
func (s *DealRecordStore) GetAll(_ context.Context) ([]*domain.DealRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DealRecord, 0, len(s.data))
	for _, d := range s.data {
		copy := *d
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryTime != result[j].EntryTime {
			return result[i].EntryTime < result[j].EntryTime
		}
		return result[i].DealID < result[j].DealID
	})

	return result, nil
}

var _ storage.DealRecordStore = (*DealRecordStore)(nil)
