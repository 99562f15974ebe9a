package storage

import "context"

// IngestionProgress is the last ingested position of one source feed.
type IngestionProgress struct {
	Source        string // "lends", "candles", ...
	Ticker        string
	LastTimestamp int64 // Unix seconds of the newest stored observation
}

// IngestionProgressStore provides persistence for ingestion state.
// This enables incremental fetches after restarts without refetching the full history.
type IngestionProgressStore interface {
	// GetLastProcessed returns the progress of a feed.
	// Returns ErrNotFound if no progress has been saved yet.
	GetLastProcessed(ctx context.Context, source, ticker string) (*IngestionProgress, error)

	// SetLastProcessed saves the progress of a feed, replacing any previous value.
	SetLastProcessed(ctx context.Context, progress *IngestionProgress) error
}
