// Package orchestrator runs the analysis pipeline for configured pairs.
// It coordinates: load rates → segment → scan/classify → align → deals → persist
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"lending-interest-lab/internal/alignment"
	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/idhash"
	"lending-interest-lab/internal/interest"
	"lending-interest-lab/internal/metrics"
	"lending-interest-lab/internal/observability"
	"lending-interest-lab/internal/segment"
	"lending-interest-lab/internal/storage"
	"lending-interest-lab/internal/strategy"
)

// DefaultParallelism is the number of pairs analysed concurrently.
const DefaultParallelism = 4

// Orchestrator coordinates the pipeline execution.
type Orchestrator struct {
	// Stores
	rateStore  storage.RateObservationStore
	priceStore storage.PriceObservationStore
	runStore   storage.InterestRunStore
	dealStore  storage.DealRecordStore

	// Analysis parameters
	pairs          []domain.Pair
	windowDuration int64
	minRunLength   int
	dealConfigs    []domain.DealConfig
	parallelism    int

	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	RateStore  storage.RateObservationStore
	PriceStore storage.PriceObservationStore
	RunStore   storage.InterestRunStore
	DealStore  storage.DealRecordStore

	Pairs          []domain.Pair
	WindowDuration int64 // seconds
	MinRunLength   int
	DealConfigs    []domain.DealConfig
	Parallelism    int // <= 0 means DefaultParallelism

	Metrics *observability.Metrics
	Logger  zerolog.Logger
	Now     func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		rateStore:      opts.RateStore,
		priceStore:     opts.PriceStore,
		runStore:       opts.RunStore,
		dealStore:      opts.DealStore,
		pairs:          opts.Pairs,
		windowDuration: opts.WindowDuration,
		minRunLength:   opts.MinRunLength,
		dealConfigs:    opts.DealConfigs,
		parallelism:    opts.Parallelism,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		now:            opts.Now,
	}
}

// PairResult is the outcome of analysing one pair.
type PairResult struct {
	Pair     domain.Pair
	Grown    []*domain.InterestRun
	NonGrown []*domain.InterestRun
	Deals    []*domain.DealRecord
	Stats    *domain.RunStats

	// Err is set when the pair's data could not be analysed.
	Err string
	// Warnings lists runs that could not be aligned or dealt.
	Warnings []string
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Pairs        []*PairResult // in configured order
	RunsCreated  int
	DealsCreated int
	DealStats    []*domain.DealStats // over the deals of this execution, by strategy
	Errors       []string
}

// Run analyses every configured pair. Pairs run concurrently. A pair whose
// data is unusable (domain.ErrInvalidArgument) is recorded in the result and
// does not stop the others; any other error, storage errors included,
// cancels the remaining pairs and is returned.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	started := o.now()

	results := make([]*PairResult, len(o.pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i, p := range o.pairs {
		g.Go(func() error {
			res, err := o.processPair(gctx, p)
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidArgument) {
					o.metrics.RecordPair("error", 0, 0)
					return fmt.Errorf("pair %s: %w", p, err)
				}
				o.logger.Warn().Err(err).Str("pair", p.String()).Msg("pair skipped")
				o.metrics.RecordPair("skipped", 0, 0)
				res = &PairResult{Pair: p, Err: err.Error()}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &RunResult{Pairs: results}
	var allDeals []*domain.DealRecord
	for _, r := range results {
		if r.Err != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", r.Pair, r.Err))
			continue
		}
		result.RunsCreated += len(r.Grown) + len(r.NonGrown)
		result.DealsCreated += len(r.Deals)
		allDeals = append(allDeals, r.Deals...)
	}
	result.DealStats = metrics.GroupByStrategy(allDeals)

	finished := o.now()
	o.metrics.RecordPipelineRun("analyze", finished.Sub(started).Seconds(), finished.Unix())
	o.logger.Info().
		Int("pairs", len(results)).
		Int("runs", result.RunsCreated).
		Int("deals", result.DealsCreated).
		Int("errors", len(result.Errors)).
		Msg("pipeline completed")

	return result, nil
}

func (o *Orchestrator) validate() error {
	if o.rateStore == nil || o.priceStore == nil || o.runStore == nil || o.dealStore == nil {
		return fmt.Errorf("%w: all stores are required", domain.ErrInvalidArgument)
	}
	if o.windowDuration <= 0 {
		return fmt.Errorf("%w: window duration must be positive, got %d", domain.ErrInvalidArgument, o.windowDuration)
	}
	if o.minRunLength <= 0 {
		return fmt.Errorf("%w: min run length must be positive, got %d", domain.ErrInvalidArgument, o.minRunLength)
	}
	for _, cfg := range o.dealConfigs {
		if _, err := strategy.FromConfig(cfg); err != nil {
			return err
		}
	}
	return nil
}

// processPair runs the full analysis for one pair and persists its runs and deals.
func (o *Orchestrator) processPair(ctx context.Context, p domain.Pair) (*PairResult, error) {
	log := o.logger.With().Str("pair", p.String()).Logger()

	if p.LendingTicker == "" {
		return nil, fmt.Errorf("%w: pair has no lending ticker", domain.ErrInvalidArgument)
	}
	if p.To != 0 && p.To < p.From {
		return nil, fmt.Errorf("%w: range end %d before start %d", domain.ErrInvalidArgument, p.To, p.From)
	}

	rates, err := o.loadRates(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("%w: no rate observations for %s", domain.ErrInvalidArgument, p.LendingTicker)
	}

	windows, err := segment.Segment(o.windowDuration, rates)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	grown, nonGrown, err := interest.Intervals(windows, o.minRunLength)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	res := &PairResult{Pair: p, Grown: grown, NonGrown: nonGrown}

	runs := make([]*domain.InterestRun, 0, len(grown)+len(nonGrown))
	runs = append(runs, grown...)
	runs = append(runs, nonGrown...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Start < runs[j].Start })

	for _, run := range runs {
		if p.TargetTicker != "" {
			if err := o.alignRun(ctx, run, p.TargetTicker); err != nil {
				if !errors.Is(err, domain.ErrInvalidArgument) {
					return nil, err
				}
				res.Warnings = append(res.Warnings, fmt.Sprintf("align run at %d: %v", run.Start, err))
			}
		}
		run.ID = idhash.ComputeRunID(run.Ticker, run.TargetTicker, run.Start, run.End)

		if !run.Aligned || len(run.InterestEntries) == 0 {
			continue
		}
		for _, cfg := range o.dealConfigs {
			deal, err := strategy.Evaluate(ctx, run, cfg)
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidArgument) {
					return nil, err
				}
				res.Warnings = append(res.Warnings, fmt.Sprintf("deal on run %s: %v", run.ID, err))
				continue
			}
			o.metrics.RecordDeal(deal.StrategyID, deal.OutcomeClass)
			res.Deals = append(res.Deals, deal)
		}
	}

	if err := o.persistRuns(ctx, runs); err != nil {
		return nil, err
	}
	if err := o.persistDeals(ctx, res.Deals); err != nil {
		return nil, err
	}

	res.Stats = metrics.ComputeRunStats(grown, nonGrown)
	o.metrics.RecordPair("ok", len(grown), len(nonGrown))
	log.Info().
		Int("growing", len(grown)).
		Int("non_growing", len(nonGrown)).
		Int("deals", len(res.Deals)).
		Int("warnings", len(res.Warnings)).
		Msg("pair analysed")

	return res, nil
}

// loadRates returns the pair's lending observations. A zero To means no upper bound.
func (o *Orchestrator) loadRates(ctx context.Context, p domain.Pair) ([]*domain.RateObservation, error) {
	if p.From == 0 && p.To == 0 {
		return o.rateStore.GetByTicker(ctx, p.LendingTicker)
	}
	to := p.To
	if to == 0 {
		to = o.now().Unix()
	}
	return o.rateStore.GetByTimeRange(ctx, p.LendingTicker, p.From, to)
}

// alignRun attaches the target's prices over the run span.
func (o *Orchestrator) alignRun(ctx context.Context, run *domain.InterestRun, target string) error {
	prices, err := o.priceStore.GetByTimeRange(ctx, target, run.Start, run.End)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	if _, err := alignment.Align(run, prices); err != nil {
		return err
	}
	run.TargetTicker = target
	return nil
}

// persistRuns inserts the runs not stored yet, so re-running a pair is idempotent.
func (o *Orchestrator) persistRuns(ctx context.Context, runs []*domain.InterestRun) error {
	fresh := make([]*domain.InterestRun, 0, len(runs))
	for _, r := range runs {
		_, err := o.runStore.GetByID(ctx, r.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("lookup run %s: %w", r.ID, err)
		}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return nil
	}
	err := o.runStore.InsertBulk(ctx, fresh)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Another pair with the same tickers stored some of them concurrently.
		for _, r := range fresh {
			if err := o.runStore.InsertBulk(ctx, []*domain.InterestRun{r}); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("insert run %s: %w", r.ID, err)
			}
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert runs: %w", err)
	}
	return nil
}

// persistDeals inserts the deals not stored yet.
func (o *Orchestrator) persistDeals(ctx context.Context, deals []*domain.DealRecord) error {
	existing := make(map[string]bool)
	checked := make(map[string]bool)
	fresh := make([]*domain.DealRecord, 0, len(deals))
	for _, d := range deals {
		if !checked[d.RunID] {
			stored, err := o.dealStore.GetByRunID(ctx, d.RunID)
			if err != nil {
				return fmt.Errorf("lookup deals of run %s: %w", d.RunID, err)
			}
			for _, s := range stored {
				existing[s.DealID] = true
			}
			checked[d.RunID] = true
		}
		if !existing[d.DealID] {
			fresh = append(fresh, d)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	err := o.dealStore.InsertBulk(ctx, fresh)
	if errors.Is(err, storage.ErrDuplicateKey) {
		for _, d := range fresh {
			if err := o.dealStore.InsertBulk(ctx, []*domain.DealRecord{d}); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("insert deal %s: %w", d.DealID, err)
			}
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert deals: %w", err)
	}
	return nil
}
