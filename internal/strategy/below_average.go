package strategy

import (
	"context"
	"fmt"

	"lending-interest-lab/internal/domain"
)

// BelowAverageStrategy enters at the first interest entry and holds until
// the lending rate drops below its average, i.e. the end of the run.
type BelowAverageStrategy struct{}

// NewBelowAverageStrategy creates a new BelowAverageStrategy.
func NewBelowAverageStrategy() *BelowAverageStrategy {
	return &BelowAverageStrategy{}
}

// ID returns the strategy identifier.
func (s *BelowAverageStrategy) ID() string {
	return fmt.Sprintf("%s_%s", domain.EntryAtStart, domain.ExitOnBelowAverage)
}

// Execute runs the strategy over the interest entries.
func (s *BelowAverageStrategy) Execute(_ context.Context, input *DealInput) (*domain.DealRecord, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	entry := input.Entries[0]
	exit := priceAtOrBefore(input.RunEnd, input.Entries)

	return buildDealRecord(input, s.ID(), entry, exit, domain.ExitReasonRunEnd), nil
}

// Ensure BelowAverageStrategy implements Strategy
var _ Strategy = (*BelowAverageStrategy)(nil)
