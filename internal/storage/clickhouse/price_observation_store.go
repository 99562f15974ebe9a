package clickhouse

import (
	"context"
	"fmt"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// PriceObservationStore implements storage.PriceObservationStore using ClickHouse.
type PriceObservationStore struct {
	conn *Conn
}

// NewPriceObservationStore creates a new PriceObservationStore.
func NewPriceObservationStore(conn *Conn) *PriceObservationStore {
	return &PriceObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceObservationStore = (*PriceObservationStore)(nil)

// InsertBulk adds multiple observations. Fails entire batch on duplicate (ticker, ts).
func (s *PriceObservationStore) InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	keys := make([]obsKey, len(obs))
	for i, o := range obs {
		if o == nil || o.Ticker == "" {
			return storage.ErrInvalidInput
		}
		keys[i] = obsKey{o.Ticker, o.Timestamp}
	}
	if err := checkDuplicates(ctx, s.conn, "price_observations", keys); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO price_observations (ticker, ts, close_price, volume)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		if err := batch.Append(o.Ticker, uint64(o.Timestamp), o.ClosePrice, o.Volume); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTicker retrieves all observations for a ticker, ordered by timestamp ASC.
func (s *PriceObservationStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.PriceObservation, error) {
	query := `
		SELECT ticker, ts, close_price, volume
		FROM price_observations
		WHERE ticker = ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("query by ticker: %w", err)
	}
	defer rows.Close()

	return scanPriceObservations(rows)
}

// GetByTimeRange retrieves observations for a ticker within [start, end] (inclusive).
func (s *PriceObservationStore) GetByTimeRange(ctx context.Context, ticker string, start, end int64) ([]*domain.PriceObservation, error) {
	query := `
		SELECT ticker, ts, close_price, volume
		FROM price_observations
		WHERE ticker = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceObservations(rows)
}

// ListTickers returns the distinct tickers stored, sorted ASC.
func (s *PriceObservationStore) ListTickers(ctx context.Context) ([]string, error) {
	return listTickers(ctx, s.conn, "price_observations")
}

func scanPriceObservations(rows chRows) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation

	for rows.Next() {
		var o domain.PriceObservation
		var ts uint64
		if err := rows.Scan(&o.Ticker, &ts, &o.ClosePrice, &o.Volume); err != nil {
			return nil, fmt.Errorf("scan price observation row: %w", err)
		}
		o.Timestamp = int64(ts)
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price observation rows: %w", err)
	}

	return result, nil
}
