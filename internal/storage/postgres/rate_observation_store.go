package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// RateObservationStore implements storage.RateObservationStore using PostgreSQL.
type RateObservationStore struct {
	pool *Pool
}

// NewRateObservationStore creates a new RateObservationStore.
func NewRateObservationStore(pool *Pool) *RateObservationStore {
	return &RateObservationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RateObservationStore = (*RateObservationStore)(nil)

// InsertBulk adds multiple observations atomically. Fails entire batch on any duplicate.
func (s *RateObservationStore) InsertBulk(ctx context.Context, obs []*domain.RateObservation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO rate_observations (ticker, ts, rate)
		VALUES ($1, $2, $3)
	`

	for _, o := range obs {
		if o == nil {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, query, o.Ticker, o.Timestamp, o.Rate); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert rate observation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByTicker retrieves all observations for a ticker, ordered by timestamp ASC.
func (s *RateObservationStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.RateObservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, ts, rate
		FROM rate_observations
		WHERE ticker = $1
		ORDER BY ts ASC
	`, ticker)
	if err != nil {
		return nil, fmt.Errorf("get rate observations by ticker: %w", err)
	}
	defer rows.Close()

	return scanRateObservations(rows)
}

// GetByTimeRange retrieves observations for a ticker within [start, end] (inclusive).
func (s *RateObservationStore) GetByTimeRange(ctx context.Context, ticker string, start, end int64) ([]*domain.RateObservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, ts, rate
		FROM rate_observations
		WHERE ticker = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC
	`, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("get rate observations by time range: %w", err)
	}
	defer rows.Close()

	return scanRateObservations(rows)
}

// ListTickers returns the distinct tickers stored, sorted ASC.
func (s *RateObservationStore) ListTickers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT ticker FROM rate_observations ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rate tickers: %w", err)
	}
	return scanStrings(rows)
}

// scanRateObservations scans multiple rows into a slice of RateObservation.
func scanRateObservations(rows pgx.Rows) ([]*domain.RateObservation, error) {
	var result []*domain.RateObservation

	for rows.Next() {
		var o domain.RateObservation
		if err := rows.Scan(&o.Ticker, &o.Timestamp, &o.Rate); err != nil {
			return nil, fmt.Errorf("scan rate observation row: %w", err)
		}
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate observation rows: %w", err)
	}

	return result, nil
}
