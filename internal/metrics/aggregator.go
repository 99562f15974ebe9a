package metrics

import (
	"context"
	"errors"
	"sort"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// ErrNoDeals is returned when no deals are available for aggregation.
var ErrNoDeals = errors.New("no deals available for aggregation")

// Aggregator computes per-strategy deal statistics from stored deal records.
type Aggregator struct {
	deals storage.DealRecordStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(deals storage.DealRecordStore) *Aggregator {
	return &Aggregator{deals: deals}
}

// ComputeAggregate computes statistics for one strategy.
// Returns ErrNoDeals if the strategy has no stored deals.
func (a *Aggregator) ComputeAggregate(ctx context.Context, strategyID string) (*domain.DealStats, error) {
	all, err := a.deals.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var matching []*domain.DealRecord
	for _, d := range all {
		if d.StrategyID == strategyID {
			matching = append(matching, d)
		}
	}
	if len(matching) == 0 {
		return nil, ErrNoDeals
	}
	return ComputeDealStats(strategyID, matching), nil
}

// ComputeAll computes statistics for every strategy with stored deals,
// ordered by strategy ID.
func (a *Aggregator) ComputeAll(ctx context.Context) ([]*domain.DealStats, error) {
	all, err := a.deals.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByStrategy(all), nil
}

// GroupByStrategy computes DealStats per strategy ID, ordered by strategy ID.
func GroupByStrategy(deals []*domain.DealRecord) []*domain.DealStats {
	byStrategy := make(map[string][]*domain.DealRecord)
	for _, d := range deals {
		byStrategy[d.StrategyID] = append(byStrategy[d.StrategyID], d)
	}

	ids := make([]string, 0, len(byStrategy))
	for id := range byStrategy {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*domain.DealStats, len(ids))
	for i, id := range ids {
		out[i] = ComputeDealStats(id, byStrategy[id])
	}
	return out
}
