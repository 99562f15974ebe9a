package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// InterestRunStore implements storage.InterestRunStore on SQLite.
type InterestRunStore struct {
	db *DB
}

// NewInterestRunStore creates a new InterestRunStore.
func NewInterestRunStore(db *DB) *InterestRunStore {
	return &InterestRunStore{db: db}
}

var _ storage.InterestRunStore = (*InterestRunStore)(nil)

const selectRuns = `
	SELECT run_id, lending_ticker, target_ticker, start_ts, end_ts,
		slope, growing, aligned, observations, interest_entries
	FROM interest_runs
`

// InsertBulk adds runs in one transaction. Fails entire batch on duplicate run_id.
func (s *InterestRunStore) InsertBulk(ctx context.Context, runs []*domain.InterestRun) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO interest_runs (
			run_id, lending_ticker, target_ticker, start_ts, end_ts,
			slope, growing, aligned, observations, interest_entries
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

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

		_, err = stmt.ExecContext(ctx,
			r.ID, r.Ticker, r.TargetTicker, r.Start, r.End,
			r.Slope, r.Growing, r.Aligned, string(obs), string(entries),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert interest run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *InterestRunStore) GetByID(ctx context.Context, runID string) (*domain.InterestRun, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+` WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get interest run by id: %w", err)
	}
	return r, nil
}

// GetByTicker retrieves all runs for a lending ticker, ordered by start ASC.
func (s *InterestRunStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.InterestRun, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+`
		WHERE lending_ticker = ?
		ORDER BY target_ticker, start_ts, run_id
	`, ticker)
	if err != nil {
		return nil, fmt.Errorf("get interest runs by ticker: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// GetAll retrieves all runs.
func (s *InterestRunStore) GetAll(ctx context.Context) ([]*domain.InterestRun, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+`
		ORDER BY lending_ticker, target_ticker, start_ts, run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("get all interest runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.InterestRun, error) {
	var r domain.InterestRun
	var obs, entries string

	err := row.Scan(
		&r.ID, &r.Ticker, &r.TargetTicker, &r.Start, &r.End,
		&r.Slope, &r.Growing, &r.Aligned, &obs, &entries,
	)
	if err != nil {
		return nil, err
	}
	if r.Observations, err = storage.DecodeRateObservations(r.Ticker, []byte(obs)); err != nil {
		return nil, err
	}
	if r.InterestEntries, err = storage.DecodePriceObservations(r.TargetTicker, []byte(entries)); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRuns(rows *sql.Rows) ([]*domain.InterestRun, error) {
	var runs []*domain.InterestRun
	for rows.Next() {
		r, err := scanRun(rows)
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
