package strategy

import (
	"context"
	"fmt"

	"lending-interest-lab/internal/domain"
)

// PercentFallStrategy enters at the first interest entry and exits at the
// first close that is FallPct or more below the entry price. Without such
// a close it exits at the end of the run.
type PercentFallStrategy struct {
	FallPct float64 // e.g. 0.05 = 5%
}

// NewPercentFallStrategy creates a new PercentFallStrategy.
func NewPercentFallStrategy(fallPct float64) *PercentFallStrategy {
	return &PercentFallStrategy{FallPct: fallPct}
}

// ID returns the strategy identifier including parameters.
func (s *PercentFallStrategy) ID() string {
	return fmt.Sprintf("%s_%s_fall%g", domain.EntryAtStart, domain.ExitOnPercentFall, s.FallPct*100)
}

// Execute runs the strategy over the interest entries.
func (s *PercentFallStrategy) Execute(_ context.Context, input *DealInput) (*domain.DealRecord, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	entry := input.Entries[0]
	stop := entry.ClosePrice * (1 - s.FallPct)

	for _, p := range input.Entries[1:] {
		if p.Timestamp > input.RunEnd {
			break
		}
		if p.ClosePrice <= stop {
			return buildDealRecord(input, s.ID(), entry, p, domain.ExitReasonPercentFall), nil
		}
	}

	exit := priceAtOrBefore(input.RunEnd, input.Entries)
	return buildDealRecord(input, s.ID(), entry, exit, domain.ExitReasonRunEnd), nil
}

// Ensure PercentFallStrategy implements Strategy
var _ Strategy = (*PercentFallStrategy)(nil)
