// Package verification re-evaluates stored deals from their stored runs and
// checks that the records match, so a report can be trusted to reproduce.
package verification

import (
	"context"
	"math"

	"lending-interest-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single deal.
type VerificationResult struct {
	DealID          string
	RunID           string
	StrategyID      string
	Match           bool              // true if all fields match
	Divergences     []FieldDivergence // list of divergent fields
	StoredOutcome   float64
	ReplayedOutcome float64
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalDeals     int
	MatchedDeals   int
	DivergentDeals int
	Results        []VerificationResult
}

// AllMatch reports whether every verified deal matched.
func (r *VerificationReport) AllMatch() bool {
	return r.DivergentDeals == 0
}

// Verifier verifies stored deals against a fresh evaluation.
type Verifier interface {
	// VerifyRun replays every deal stored for a run.
	VerifyRun(ctx context.Context, runID string) ([]VerificationResult, error)

	// VerifyAll verifies all stored deals.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareDealRecords compares two deal records and returns divergences.
// Uses FloatTolerance for float64 comparisons.
func CompareDealRecords(stored, replayed *domain.DealRecord) []FieldDivergence {
	var d []FieldDivergence

	str := func(field, a, b string) {
		if a != b {
			d = append(d, FieldDivergence{Field: field, Expected: a, Actual: b})
		}
	}
	i64 := func(field string, a, b int64) {
		if a != b {
			d = append(d, FieldDivergence{Field: field, Expected: a, Actual: b})
		}
	}
	f64 := func(field string, a, b float64) {
		if !floatEquals(a, b) {
			d = append(d, FieldDivergence{Field: field, Expected: a, Actual: b})
		}
	}

	str("DealID", stored.DealID, replayed.DealID)
	str("RunID", stored.RunID, replayed.RunID)
	str("StrategyID", stored.StrategyID, replayed.StrategyID)
	str("Ticker", stored.Ticker, replayed.Ticker)
	str("Target", stored.Target, replayed.Target)

	i64("EntryTime", stored.EntryTime, replayed.EntryTime)
	f64("EntryPrice", stored.EntryPrice, replayed.EntryPrice)
	i64("ExitTime", stored.ExitTime, replayed.ExitTime)
	f64("ExitPrice", stored.ExitPrice, replayed.ExitPrice)
	str("ExitReason", stored.ExitReason, replayed.ExitReason)

	f64("Outcome", stored.Outcome, replayed.Outcome)
	str("OutcomeClass", stored.OutcomeClass, replayed.OutcomeClass)
	if stored.Growing != replayed.Growing {
		d = append(d, FieldDivergence{Field: "Growing", Expected: stored.Growing, Actual: replayed.Growing})
	}

	return d
}

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
