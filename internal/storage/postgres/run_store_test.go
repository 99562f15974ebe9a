package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/idhash"
	"lending-interest-lab/internal/storage"
)

func createTestRun(ticker, target string, start, end int64) *domain.InterestRun {
	return &domain.InterestRun{
		Window: domain.Window{
			Ticker: ticker,
			Start:  start,
			End:    end,
			Observations: []*domain.RateObservation{
				{Ticker: ticker, Timestamp: start, Rate: 0.5},
				{Ticker: ticker, Timestamp: end, Rate: 0.7},
			},
		},
		ID:           idhash.ComputeRunID(ticker, target, start, end),
		TargetTicker: target,
		InterestEntries: []*domain.PriceObservation{
			{Ticker: target, Timestamp: start, ClosePrice: 0.01, Volume: 100},
			{Ticker: target, Timestamp: end, ClosePrice: 0.012, Volume: 90},
		},
		Slope:   0.0002,
		Growing: true,
		Aligned: true,
	}
}

func TestInterestRunStore_InsertAndGet(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewInterestRunStore(pool)

	r1 := createTestRun("BTC", "XMR", 2000, 3000)
	r2 := createTestRun("BTC", "XMR", 1000, 1500)
	require.NoError(t, store.InsertBulk(ctx, []*domain.InterestRun{r1, r2}))

	got, err := store.GetByID(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.Start, got.Start)
	assert.Equal(t, r1.End, got.End)
	assert.Equal(t, r1.Observations, got.Observations)
	assert.Equal(t, r1.InterestEntries, got.InterestEntries)
	assert.True(t, got.Growing)
	assert.True(t, got.Aligned)

	byTicker, err := store.GetByTicker(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, byTicker, 2)
	assert.Equal(t, int64(1000), byTicker[0].Start)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.InsertBulk(ctx, []*domain.InterestRun{r1})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDealRecordStore_InsertAndGet(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	run := createTestRun("BTC", "XMR", 1000, 2000)
	require.NoError(t, NewInterestRunStore(pool).InsertBulk(ctx, []*domain.InterestRun{run}))

	store := NewDealRecordStore(pool)
	deals := []*domain.DealRecord{
		{
			DealID: idhash.ComputeDealID(run.ID, "B"), RunID: run.ID, StrategyID: "B",
			Ticker: "BTC", Target: "XMR",
			EntryTime: 1000, EntryPrice: 0.01, ExitTime: 2000, ExitPrice: 0.012,
			ExitReason: domain.ExitReasonRunEnd, Outcome: 0.2, OutcomeClass: domain.OutcomeClassWin, Growing: true,
		},
		{
			DealID: idhash.ComputeDealID(run.ID, "A"), RunID: run.ID, StrategyID: "A",
			Ticker: "BTC", Target: "XMR",
			EntryTime: 1000, EntryPrice: 0.01, ExitTime: 1500, ExitPrice: 0.009,
			ExitReason: domain.ExitReasonPercentFall, Outcome: -0.1, OutcomeClass: domain.OutcomeClassLoss, Growing: true,
		},
	}
	require.NoError(t, store.InsertBulk(ctx, deals))

	byRun, err := store.GetByRunID(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, byRun, 2)
	assert.Equal(t, "A", byRun[0].StrategyID)
	assert.Equal(t, domain.ExitReasonPercentFall, byRun[0].ExitReason)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, store.InsertBulk(ctx, deals[:1]), storage.ErrDuplicateKey)
}

func TestIngestionProgressStore_Upsert(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewIngestionProgressStore(pool)

	_, err := store.GetLastProcessed(ctx, "lends", "BTC")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetLastProcessed(ctx, &storage.IngestionProgress{Source: "lends", Ticker: "BTC", LastTimestamp: 100}))
	require.NoError(t, store.SetLastProcessed(ctx, &storage.IngestionProgress{Source: "lends", Ticker: "BTC", LastTimestamp: 250}))

	p, err := store.GetLastProcessed(ctx, "lends", "BTC")
	require.NoError(t, err)
	assert.Equal(t, int64(250), p.LastTimestamp)
}
