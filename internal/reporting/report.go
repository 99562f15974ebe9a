package reporting

import (
	"time"

	"lending-interest-lab/internal/domain"
)

// GeneratorVersion is stamped into every report for reproducibility.
const GeneratorVersion = "1.0.0"

// Report is the interest run report.
type Report struct {
	// Metadata
	GeneratedAt time.Time

	Summary     Summary
	DataQuality DataQualitySection

	// Pairs in (lending ticker, target ticker) order
	Pairs []PairSection

	// Deal metrics by strategy_id
	DealMetrics []*domain.DealStats

	Reproducibility Reproducibility

	// Source records for the CSV exports
	Runs  []*domain.InterestRun
	Deals []*domain.DealRecord
}

// Summary describes the stored data the report covers.
type Summary struct {
	TotalPairs     int
	TotalRuns      int
	GrowingRuns    int
	NonGrowingRuns int
	TotalDeals     int
	DateRangeStart int64 // Unix seconds, earliest run start
	DateRangeEnd   int64 // Unix seconds, latest run end
}

// DataQualitySection contains data sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// PairSection holds the runs found for one (lending, target) pair.
type PairSection struct {
	LendingTicker string
	TargetTicker  string
	Stats         *domain.RunStats
	Growing       []RunRow
	NonGrowing    []RunRow
}

// RunRow represents one run in a pair table.
type RunRow struct {
	RunID          string
	Start          int64
	End            int64
	Observations   int
	Entries        int
	RateChange     float64
	Slope          float64
	PriceChangePct float64
	Deals          int
}

// Reproducibility identifies the generator and the data a report was built from.
type Reproducibility struct {
	GeneratorVersion string
	DataVersion      string // sha256 over run and deal IDs
}
