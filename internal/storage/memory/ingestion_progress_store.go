package memory

import (
	"context"
	"sync"

	"lending-interest-lab/internal/storage"
)

// IngestionProgressStore is an in-memory implementation of storage.IngestionProgressStore.
type IngestionProgressStore struct {
	mu       sync.RWMutex
	progress map[string]storage.IngestionProgress // keyed by (source, ticker)
}

// NewIngestionProgressStore creates a new in-memory ingestion progress store.
func NewIngestionProgressStore() *IngestionProgressStore {
	return &IngestionProgressStore{
		progress: make(map[string]storage.IngestionProgress),
	}
}

// GetLastProcessed returns the progress of a feed.
func (s *IngestionProgressStore) GetLastProcessed(_ context.Context, source, ticker string) (*storage.IngestionProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[source+"|"+ticker]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

// SetLastProcessed saves the progress of a feed.
func (s *IngestionProgressStore) SetLastProcessed(_ context.Context, progress *storage.IngestionProgress) error {
	if progress == nil || progress.Source == "" || progress.Ticker == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[progress.Source+"|"+progress.Ticker] = *progress
	return nil
}

var _ storage.IngestionProgressStore = (*IngestionProgressStore)(nil)
