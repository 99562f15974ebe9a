package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// PriceObservationStore implements storage.PriceObservationStore using PostgreSQL.
type PriceObservationStore struct {
	pool *Pool
}

// NewPriceObservationStore creates a new PriceObservationStore.
func NewPriceObservationStore(pool *Pool) *PriceObservationStore {
	return &PriceObservationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceObservationStore = (*PriceObservationStore)(nil)

// InsertBulk adds multiple observations atomically. Fails entire batch on any duplicate.
func (s *PriceObservationStore) InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_observations (ticker, ts, close_price, volume)
		VALUES ($1, $2, $3, $4)
	`

	for _, o := range obs {
		if o == nil {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, query, o.Ticker, o.Timestamp, o.ClosePrice, o.Volume); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert price observation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByTicker retrieves all observations for a ticker, ordered by timestamp ASC.
func (s *PriceObservationStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.PriceObservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, ts, close_price, volume
		FROM price_observations
		WHERE ticker = $1
		ORDER BY ts ASC
	`, ticker)
	if err != nil {
		return nil, fmt.Errorf("get price observations by ticker: %w", err)
	}
	defer rows.Close()

	return scanPriceObservations(rows)
}

// GetByTimeRange retrieves observations for a ticker within [start, end] (inclusive).
func (s *PriceObservationStore) GetByTimeRange(ctx context.Context, ticker string, start, end int64) ([]*domain.PriceObservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, ts, close_price, volume
		FROM price_observations
		WHERE ticker = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC
	`, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("get price observations by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceObservations(rows)
}

// ListTickers returns the distinct tickers stored, sorted ASC.
func (s *PriceObservationStore) ListTickers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT ticker FROM price_observations ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("list price tickers: %w", err)
	}
	return scanStrings(rows)
}

func scanPriceObservations(rows pgx.Rows) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation

	for rows.Next() {
		var o domain.PriceObservation
		if err := rows.Scan(&o.Ticker, &o.Timestamp, &o.ClosePrice, &o.Volume); err != nil {
			return nil, fmt.Errorf("scan price observation row: %w", err)
		}
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price observation rows: %w", err)
	}

	return result, nil
}
