package verification

import (
	"context"
	"errors"
	"fmt"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
	"lending-interest-lab/internal/strategy"
)

var (
	// ErrRunNotFound is returned when a deal references a run that is not stored.
	ErrRunNotFound = errors.New("run not found")

	// ErrUnknownStrategy is returned when a deal's strategy is not among the configured deals.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// ReplayVerifier re-evaluates deals over their stored runs.
type ReplayVerifier struct {
	runStore  storage.InterestRunStore
	dealStore storage.DealRecordStore

	// configs maps strategy ID to its configuration.
	configs map[string]domain.DealConfig
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RunStore    storage.InterestRunStore
	DealStore   storage.DealRecordStore
	DealConfigs []domain.DealConfig
}

// NewReplayVerifier creates a new ReplayVerifier. Invalid deal configs are rejected.
func NewReplayVerifier(opts ReplayVerifierOptions) (*ReplayVerifier, error) {
	configs := make(map[string]domain.DealConfig, len(opts.DealConfigs))
	for _, cfg := range opts.DealConfigs {
		s, err := strategy.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		configs[s.ID()] = cfg
	}
	return &ReplayVerifier{
		runStore:  opts.RunStore,
		dealStore: opts.DealStore,
		configs:   configs,
	}, nil
}

var _ Verifier = (*ReplayVerifier)(nil)

// VerifyRun replays every deal stored for runID.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) ([]VerificationResult, error) {
	run, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	deals, err := v.dealStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	results := make([]VerificationResult, 0, len(deals))
	for _, stored := range deals {
		results = append(results, v.verifyDeal(ctx, run, stored))
	}
	return results, nil
}

// VerifyAll verifies all stored deals. A deal whose run is missing or whose
// strategy is unknown is reported as divergent.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	deals, err := v.dealStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalDeals: len(deals),
		Results:    make([]VerificationResult, 0, len(deals)),
	}

	runs := make(map[string]*domain.InterestRun)
	for _, stored := range deals {
		run, ok := runs[stored.RunID]
		if !ok {
			run, err = v.runStore.GetByID(ctx, stored.RunID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return nil, err
			}
			runs[stored.RunID] = run
		}

		var result VerificationResult
		if run == nil {
			result = errorResult(stored, fmt.Errorf("%w: %s", ErrRunNotFound, stored.RunID))
		} else {
			result = v.verifyDeal(ctx, run, stored)
		}

		report.Results = append(report.Results, result)
		if result.Match {
			report.MatchedDeals++
		} else {
			report.DivergentDeals++
		}
	}

	return report, nil
}

func (v *ReplayVerifier) verifyDeal(ctx context.Context, run *domain.InterestRun, stored *domain.DealRecord) VerificationResult {
	cfg, ok := v.configs[stored.StrategyID]
	if !ok {
		return errorResult(stored, fmt.Errorf("%w: %s", ErrUnknownStrategy, stored.StrategyID))
	}

	replayed, err := strategy.Evaluate(ctx, run, cfg)
	if err != nil {
		return errorResult(stored, err)
	}

	divergences := CompareDealRecords(stored, replayed)
	return VerificationResult{
		DealID:          stored.DealID,
		RunID:           stored.RunID,
		StrategyID:      stored.StrategyID,
		Match:           len(divergences) == 0,
		Divergences:     divergences,
		StoredOutcome:   stored.Outcome,
		ReplayedOutcome: replayed.Outcome,
	}
}

func errorResult(stored *domain.DealRecord, err error) VerificationResult {
	return VerificationResult{
		DealID:        stored.DealID,
		RunID:         stored.RunID,
		StrategyID:    stored.StrategyID,
		StoredOutcome: stored.Outcome,
		Divergences:   []FieldDivergence{{Field: "Error", Actual: err.Error()}},
	}
}
