package domain

// DealConfig selects a deal strategy evaluated over an aligned interest run.
// The set of entry and exit rules is closed.
type DealConfig struct {
	Entry   string  // EntryAtStart
	Exit    string  // ExitOnBelowAverage | ExitOnPercentFall
	FallPct float64 // ExitOnPercentFall: fraction below entry price, e.g. 0.05
}

// Entry rules
const (
	EntryAtStart = "ENTER_AT_START"
)

// Exit rules
const (
	ExitOnBelowAverage = "CLOSE_ON_BELOW_AVERAGE"
	ExitOnPercentFall  = "CLOSE_ON_PERCENT_FALL"
)

// DealRecord is the simulated outcome of holding the target asset over an interest run.
type DealRecord struct {
	DealID     string // deterministic hash of (run_id, strategy_id)
	RunID      string
	StrategyID string
	Ticker     string // lending ticker of the run
	Target     string // traded asset

	EntryTime  int64   // Unix seconds
	EntryPrice float64 // close price at entry
	ExitTime   int64
	ExitPrice  float64
	ExitReason string // exit rule that fired

	Outcome      float64 // exit/entry - 1
	OutcomeClass string  // WIN | LOSS
	Growing      bool    // classification of the originating run
}

// Exit reason codes
const (
	ExitReasonRunEnd      = "RUN_END"
	ExitReasonPercentFall = "PERCENT_FALL"
)

// Outcome class constants
const (
	OutcomeClassWin  = "WIN"
	OutcomeClassLoss = "LOSS"
)

// Pair couples a lending-rate reference asset with the asset whose prices
// are examined during its interest runs.
type Pair struct {
	LendingTicker string
	TargetTicker  string
	From          int64 // Unix seconds, inclusive
	To            int64 // Unix seconds, inclusive
}

// String returns "LENDING/TARGET".
func (p Pair) String() string {
	return p.LendingTicker + "/" + p.TargetTicker
}
