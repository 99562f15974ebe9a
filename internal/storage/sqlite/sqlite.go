// Package sqlite keeps a local, single-file snapshot of interest runs that
// dashboards can read while the pipeline writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle shared by the stores in this package.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the database file and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	// WAL lets readers proceed while a write is in progress.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	d := &DB{DB: db}
	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interest_runs (
			run_id           TEXT PRIMARY KEY,
			lending_ticker   TEXT NOT NULL,
			target_ticker    TEXT NOT NULL DEFAULT '',
			start_ts         INTEGER NOT NULL,
			end_ts           INTEGER NOT NULL,
			slope            REAL NOT NULL DEFAULT 0,
			growing          INTEGER NOT NULL DEFAULT 0,
			aligned          INTEGER NOT NULL DEFAULT 0,
			observations     TEXT NOT NULL,
			interest_entries TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ticker ON interest_runs(lending_ticker, start_ts)`,
	}
	for _, s := range stmts {
		if _, err := d.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
