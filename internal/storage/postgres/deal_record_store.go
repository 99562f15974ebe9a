package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// DealRecordStore implements storage.DealRecordStore using PostgreSQL.
type DealRecordStore struct {
	pool *Pool
}

// NewDealRecordStore creates a new DealRecordStore.
func NewDealRecordStore(pool *Pool) *DealRecordStore {
	return &DealRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DealRecordStore = (*DealRecordStore)(nil)

const selectDealColumns = `
	SELECT
		deal_id, run_id, strategy_id, lending_ticker, target_ticker,
		entry_time, entry_price, exit_time, exit_price, exit_reason,
		outcome, outcome_class, growing
	FROM deal_records
`

// InsertBulk adds multiple deals atomically. Fails entire batch on any duplicate.
func (s *DealRecordStore) InsertBulk(ctx context.Context, deals []*domain.DealRecord) error {
	if len(deals) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO deal_records (
			deal_id, run_id, strategy_id, lending_ticker, target_ticker,
			entry_time, entry_price, exit_time, exit_price, exit_reason,
			outcome, outcome_class, growing
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13
		)
	`

	for _, d := range deals {
		if d == nil || d.DealID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			d.DealID, d.RunID, d.StrategyID, d.Ticker, d.Target,
			d.EntryTime, d.EntryPrice, d.ExitTime, d.ExitPrice, d.ExitReason,
			d.Outcome, d.OutcomeClass, d.Growing,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert deal record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRunID retrieves all deals for a run, ordered by strategy_id ASC.
func (s *DealRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.DealRecord, error) {
	rows, err := s.pool.Query(ctx, selectDealColumns+`
		WHERE run_id = $1
		ORDER BY strategy_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get deal records by run id: %w", err)
	}
	defer rows.Close()

	return scanDealRecords(rows)
}

// GetAll retrieves all deals, ordered by entry_time ASC, deal_id ASC.
func (s *DealRecordStore) GetAll(ctx context.Context) ([]*domain.DealRecord, error) {
	rows, err := s.pool.Query(ctx, selectDealColumns+`
		ORDER BY entry_time ASC, deal_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get all deal records: %w", err)
	}
	defer rows.Close()

	return scanDealRecords(rows)
}

// scanDealRecords scans multiple rows into a slice of DealRecord.
func scanDealRecords(rows pgx.Rows) ([]*domain.DealRecord, error) {
	var deals []*domain.DealRecord

	for rows.Next() {
		var d domain.DealRecord
		err := rows.Scan(
			&d.DealID, &d.RunID, &d.StrategyID, &d.Ticker, &d.Target,
			&d.EntryTime, &d.EntryPrice, &d.ExitTime, &d.ExitPrice, &d.ExitReason,
			&d.Outcome, &d.OutcomeClass, &d.Growing,
		)
		if err != nil {
			return nil, fmt.Errorf("scan deal record row: %w", err)
		}
		deals = append(deals, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deal record rows: %w", err)
	}

	return deals, nil
}
