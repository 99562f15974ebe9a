package postgres

import (
	"context"
	"fmt"

	"lending-interest-lab/internal/storage"
)

// IngestionProgressStore is a PostgreSQL implementation of storage.IngestionProgressStore.
// One row per (source, ticker) in ingestion_progress.
type IngestionProgressStore struct {
	pool *Pool
}

// NewIngestionProgressStore creates a new PostgreSQL ingestion progress store.
func NewIngestionProgressStore(pool *Pool) *IngestionProgressStore {
	return &IngestionProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IngestionProgressStore = (*IngestionProgressStore)(nil)

// GetLastProcessed returns the progress of a feed.
func (s *IngestionProgressStore) GetLastProcessed(ctx context.Context, source, ticker string) (*storage.IngestionProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT source, ticker, last_ts
		FROM ingestion_progress
		WHERE source = $1 AND ticker = $2
	`, source, ticker)

	var p storage.IngestionProgress
	if err := row.Scan(&p.Source, &p.Ticker, &p.LastTimestamp); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ingestion progress: %w", err)
	}
	return &p, nil
}

// SetLastProcessed saves the progress of a feed.
// Uses upsert to handle initial insert and subsequent updates.
func (s *IngestionProgressStore) SetLastProcessed(ctx context.Context, progress *storage.IngestionProgress) error {
	if progress == nil || progress.Source == "" || progress.Ticker == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingestion_progress (source, ticker, last_ts, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (source, ticker) DO UPDATE
		SET last_ts = EXCLUDED.last_ts,
		    updated_at = NOW()
	`, progress.Source, progress.Ticker, progress.LastTimestamp)
	if err != nil {
		return fmt.Errorf("set ingestion progress: %w", err)
	}
	return nil
}
