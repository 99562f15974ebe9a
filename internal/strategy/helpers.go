package strategy

import (
	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/idhash"
)

// priceAtOrBefore returns the last entry at or before target.
// If none is, returns the first entry.
func priceAtOrBefore(target int64, entries []*domain.PriceObservation) *domain.PriceObservation {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Timestamp <= target {
			return entries[i]
		}
	}
	return entries[0]
}

// buildDealRecord constructs a complete DealRecord from entry and exit points.
func buildDealRecord(input *DealInput, strategyID string, entry, exit *domain.PriceObservation, exitReason string) *domain.DealRecord {
	outcome := exit.ClosePrice/entry.ClosePrice - 1

	outcomeClass := domain.OutcomeClassLoss
	if outcome > 0 {
		outcomeClass = domain.OutcomeClassWin
	}

	return &domain.DealRecord{
		DealID:     idhash.ComputeDealID(input.RunID, strategyID),
		RunID:      input.RunID,
		StrategyID: strategyID,
		Ticker:     input.Ticker,
		Target:     input.Target,

		EntryTime:  entry.Timestamp,
		EntryPrice: entry.ClosePrice,
		ExitTime:   exit.Timestamp,
		ExitPrice:  exit.ClosePrice,
		ExitReason: exitReason,

		Outcome:      outcome,
		OutcomeClass: outcomeClass,
		Growing:      input.Growing,
	}
}
