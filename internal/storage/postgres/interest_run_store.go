package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// InterestRunStore implements storage.InterestRunStore using PostgreSQL.
// Observations and interest entries are stored as JSONB arrays on the run row.
type InterestRunStore struct {
	pool *Pool
}

// NewInterestRunStore creates a new InterestRunStore.
func NewInterestRunStore(pool *Pool) *InterestRunStore {
	return &InterestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InterestRunStore = (*InterestRunStore)(nil)

const selectRunColumns = `
	SELECT
		run_id, lending_ticker, target_ticker, start_ts, end_ts,
		slope, growing, aligned, observations, interest_entries
	FROM interest_runs
`

// InsertBulk adds multiple runs atomically. Fails entire batch on any duplicate.
func (s *InterestRunStore) InsertBulk(ctx context.Context, runs []*domain.InterestRun) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO interest_runs (
			run_id, lending_ticker, target_ticker, start_ts, end_ts,
			slope, growing, aligned, num_entries, observations, interest_entries
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11
		)
	`

	for _, r := range runs {
		if r == nil || r.ID == "" {
			return storage.ErrInvalidInput
		}
		obs, err := storage.EncodeRateObservations(r.Observations)
		if err != nil {
			return err
		}
		entries, err := storage.EncodePriceObservations(r.InterestEntries)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, query,
			r.ID, r.Ticker, r.TargetTicker, r.Start, r.End,
			r.Slope, r.Growing, r.Aligned, len(r.Observations), obs, entries,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert interest run: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *InterestRunStore) GetByID(ctx context.Context, runID string) (*domain.InterestRun, error) {
	row := s.pool.QueryRow(ctx, selectRunColumns+` WHERE run_id = $1`, runID)

	r, err := scanInterestRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get interest run by id: %w", err)
	}
	return r, nil
}

// GetByTicker retrieves all runs for a lending ticker, ordered by start ASC.
func (s *InterestRunStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.InterestRun, error) {
	rows, err := s.pool.Query(ctx, selectRunColumns+`
		WHERE lending_ticker = $1
		ORDER BY target_ticker ASC, start_ts ASC, run_id ASC
	`, ticker)
	if err != nil {
		return nil, fmt.Errorf("get interest runs by ticker: %w", err)
	}
	defer rows.Close()

	return scanInterestRuns(rows)
}

// GetAll retrieves all runs.
func (s *InterestRunStore) GetAll(ctx context.Context) ([]*domain.InterestRun, error) {
	rows, err := s.pool.Query(ctx, selectRunColumns+`
		ORDER BY lending_ticker ASC, target_ticker ASC, start_ts ASC, run_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get all interest runs: %w", err)
	}
	defer rows.Close()

	return scanInterestRuns(rows)
}

// scanInterestRun scans a single row into an InterestRun.
func scanInterestRun(row pgx.Row) (*domain.InterestRun, error) {
	var r domain.InterestRun
	var obs, entries []byte

	err := row.Scan(
		&r.ID, &r.Ticker, &r.TargetTicker, &r.Start, &r.End,
		&r.Slope, &r.Growing, &r.Aligned, &obs, &entries,
	)
	if err != nil {
		return nil, err
	}

	if r.Observations, err = storage.DecodeRateObservations(r.Ticker, obs); err != nil {
		return nil, err
	}
	if r.InterestEntries, err = storage.DecodePriceObservations(r.TargetTicker, entries); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanInterestRuns(rows pgx.Rows) ([]*domain.InterestRun, error) {
	var runs []*domain.InterestRun

	for rows.Next() {
		r, err := scanInterestRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interest run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interest run rows: %w", err)
	}

	return runs, nil
}
