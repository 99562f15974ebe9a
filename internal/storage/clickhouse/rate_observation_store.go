package clickhouse

import (
	"context"
	"fmt"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

var errDuplicate = storage.ErrDuplicateKey

// RateObservationStore implements storage.RateObservationStore using ClickHouse.
type RateObservationStore struct {
	conn *Conn
}

// NewRateObservationStore creates a new RateObservationStore.
func NewRateObservationStore(conn *Conn) *RateObservationStore {
	return &RateObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RateObservationStore = (*RateObservationStore)(nil)

// InsertBulk adds multiple observations. Fails entire batch on duplicate (ticker, ts).
func (s *RateObservationStore) InsertBulk(ctx context.Context, obs []*domain.RateObservation) error {
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
	if err := checkDuplicates(ctx, s.conn, "rate_observations", keys); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO rate_observations (ticker, ts, rate)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		if err := batch.Append(o.Ticker, uint64(o.Timestamp), o.Rate); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTicker retrieves all observations for a ticker, ordered by timestamp ASC.
func (s *RateObservationStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.RateObservation, error) {
	query := `
		SELECT ticker, ts, rate
		FROM rate_observations
		WHERE ticker = ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("query by ticker: %w", err)
	}
	defer rows.Close()

	return scanRateObservations(rows)
}

// GetByTimeRange retrieves observations for a ticker within [start, end] (inclusive).
func (s *RateObservationStore) GetByTimeRange(ctx context.Context, ticker string, start, end int64) ([]*domain.RateObservation, error) {
	query := `
		SELECT ticker, ts, rate
		FROM rate_observations
		WHERE ticker = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanRateObservations(rows)
}

// ListTickers returns the distinct tickers stored, sorted ASC.
func (s *RateObservationStore) ListTickers(ctx context.Context) ([]string, error) {
	return listTickers(ctx, s.conn, "rate_observations")
}

func scanRateObservations(rows chRows) ([]*domain.RateObservation, error) {
	var result []*domain.RateObservation

	for rows.Next() {
		var o domain.RateObservation
		var ts uint64
		if err := rows.Scan(&o.Ticker, &ts, &o.Rate); err != nil {
			return nil, fmt.Errorf("scan rate observation row: %w", err)
		}
		o.Timestamp = int64(ts)
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate observation rows: %w", err)
	}

	return result, nil
}

func listTickers(ctx context.Context, conn *Conn, table string) ([]string, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT DISTINCT ticker FROM %s ORDER BY ticker ASC`, table))
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}
