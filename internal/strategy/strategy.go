package strategy

import (
	"context"
	"fmt"

	"lending-interest-lab/internal/domain"
)

// Strategy turns an aligned interest run into a simulated deal.
type Strategy interface {
	// Execute holds the target asset over the run's interest entries.
	// Returns a deterministic deal record.
	Execute(ctx context.Context, input *DealInput) (*domain.DealRecord, error)

	// ID returns strategy identifier (includes parameters).
	ID() string
}

// DealInput holds all data needed for deal execution.
type DealInput struct {
	RunID   string
	Ticker  string // lending ticker
	Target  string // traded ticker
	Growing bool
	RunEnd  int64

	// Entries are the run's interest entries, strictly ascending.
	Entries []*domain.PriceObservation
}

// InputFromRun builds a DealInput from an aligned run.
func InputFromRun(run *domain.InterestRun) *DealInput {
	return &DealInput{
		RunID:   run.ID,
		Ticker:  run.Ticker,
		Target:  run.TargetTicker,
		Growing: run.Growing,
		RunEnd:  run.End,
		Entries: run.InterestEntries,
	}
}

// Validate checks that the input carries a usable price series.
func (in *DealInput) Validate() error {
	if in == nil {
		return fmt.Errorf("%w: nil deal input", domain.ErrInvalidArgument)
	}
	if len(in.Entries) == 0 {
		return fmt.Errorf("%w: run %s has no interest entries", domain.ErrInvalidArgument, in.RunID)
	}
	if err := domain.CheckPricesStrictlyAscending(in.Entries); err != nil {
		return err
	}
	if in.Entries[0].ClosePrice <= 0 {
		return fmt.Errorf("%w: entry price must be positive", domain.ErrInvalidArgument)
	}
	return nil
}

// Evaluate builds the strategy for cfg and executes it over the run.
// The run must have been aligned.
func Evaluate(ctx context.Context, run *domain.InterestRun, cfg domain.DealConfig) (*domain.DealRecord, error) {
	if run == nil {
		return nil, fmt.Errorf("%w: nil run", domain.ErrInvalidArgument)
	}
	s, err := FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, InputFromRun(run))
}
