package domain

// RunStats summarises the interest runs found for one pair.
type RunStats struct {
	TotalRuns      int
	GrowingRuns    int
	NonGrowingRuns int
	GrowingShare   float64 // GrowingRuns / TotalRuns

	// Lending entries per run
	MeanEntries   float64
	MedianEntries float64

	MeanDurationSec float64

	// Mean relative close-price change of the aligned target over runs,
	// split by classification. Runs without interest entries are skipped.
	MeanPriceChangeGrowing    float64
	MeanPriceChangeNonGrowing float64
}

// DealStats aggregates deal outcomes for one strategy.
type DealStats struct {
	StrategyID string

	// Counts
	TotalDeals int
	Wins       int
	Losses     int
	WinRate    float64

	// Win rate split by the originating run's classification
	GrowingWinRate    float64
	NonGrowingWinRate float64

	// Outcome Distribution
	OutcomeMean   float64
	OutcomeMedian float64
	OutcomeP10    float64
	OutcomeP90    float64
	OutcomeMin    float64
	OutcomeMax    float64
	OutcomeStddev float64

	// Drawdown (chronological by entry time)
	MaxDrawdown          float64
	MaxConsecutiveLosses int
}
