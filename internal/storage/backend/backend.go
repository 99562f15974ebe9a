// Package backend opens the stores selected by the storage configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"lending-interest-lab/internal/config"
	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
	chstore "lending-interest-lab/internal/storage/clickhouse"
	"lending-interest-lab/internal/storage/memory"
	"lending-interest-lab/internal/storage/migrations"
	pgstore "lending-interest-lab/internal/storage/postgres"
	"lending-interest-lab/internal/storage/sqlite"
)

// Stores holds every store the binaries need.
type Stores struct {
	Rates    storage.RateObservationStore
	Prices   storage.PriceObservationStore
	Runs     storage.InterestRunStore
	Deals    storage.DealRecordStore
	Progress storage.IngestionProgressStore

	closers []func()
}

// Close releases connections in reverse opening order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Open builds the stores for cfg.
//
// Backend "memory" keeps everything in process; "postgres" applies the
// embedded migrations and stores everything in PostgreSQL. A ClickHouse DSN
// moves the observation timeseries to ClickHouse. A SQLite path mirrors
// every inserted run into a local snapshot file.
func Open(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*Stores, error) {
	s := &Stores{}

	switch cfg.Backend {
	case "", "memory":
		s.Rates = memory.NewRateObservationStore()
		s.Prices = memory.NewPriceObservationStore()
		s.Runs = memory.NewInterestRunStore()
		s.Deals = memory.NewDealRecordStore()
		s.Progress = memory.NewIngestionProgressStore()
	case "postgres":
		pool, err := pgstore.NewPoolWithOptions(ctx, cfg.PostgresDSN, pgstore.PoolOptions{
			MaxConns: cfg.PostgresMaxConns,
			MinConns: cfg.PostgresMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.Rates = pgstore.NewRateObservationStore(pool)
		s.Prices = pgstore.NewPriceObservationStore(pool)
		s.Runs = pgstore.NewInterestRunStore(pool)
		s.Deals = pgstore.NewDealRecordStore(pool)
		s.Progress = pgstore.NewIngestionProgressStore(pool)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", storage.ErrInvalidInput, cfg.Backend)
	}
	logger.Info().Str("backend", cfg.Backend).Msg("storage opened")

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.Rates = chstore.NewRateObservationStore(conn)
		s.Prices = chstore.NewPriceObservationStore(conn)
		logger.Info().Msg("observation timeseries stored in clickhouse")
	}

	if cfg.SQLitePath != "" {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("sqlite snapshot: %w", err)
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		s.Runs = NewMirroredRunStore(s.Runs, sqlite.NewInterestRunStore(db), logger)
		logger.Info().Str("path", cfg.SQLitePath).Msg("runs mirrored to sqlite snapshot")
	}

	return s, nil
}

// MirroredRunStore writes runs to a primary store and copies them into a
// snapshot store. Reads are served by the primary.
type MirroredRunStore struct {
	storage.InterestRunStore
	snapshot storage.InterestRunStore
	logger   zerolog.Logger
}

// NewMirroredRunStore wraps primary so that inserts are mirrored to snapshot.
func NewMirroredRunStore(primary, snapshot storage.InterestRunStore, logger zerolog.Logger) *MirroredRunStore {
	return &MirroredRunStore{InterestRunStore: primary, snapshot: snapshot, logger: logger}
}

// InsertBulk inserts into the primary, then the snapshot. Runs the snapshot
// already holds are skipped one by one; other snapshot failures are logged
// and do not fail the insert.
func (m *MirroredRunStore) InsertBulk(ctx context.Context, runs []*domain.InterestRun) error {
	if err := m.InterestRunStore.InsertBulk(ctx, runs); err != nil {
		return err
	}

	err := m.snapshot.InsertBulk(ctx, runs)
	if errors.Is(err, storage.ErrDuplicateKey) {
		for _, r := range runs {
			if ierr := m.snapshot.InsertBulk(ctx, []*domain.InterestRun{r}); ierr != nil && !errors.Is(ierr, storage.ErrDuplicateKey) {
				err = ierr
				break
			}
			err = nil
		}
	}
	if err != nil {
		m.logger.Warn().Err(err).Int("runs", len(runs)).Msg("sqlite snapshot insert failed")
	}
	return nil
}
