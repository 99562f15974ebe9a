package api

import "lending-interest-lab/internal/domain"

// RateView is a lending observation as served by the API.
type RateView struct {
	Timestamp int64   `json:"timestamp"`
	Rate      float64 `json:"rate"`
}

// EntryView is an aligned price observation as served by the API.
type EntryView struct {
	Timestamp  int64   `json:"timestamp"`
	ClosePrice float64 `json:"close_price"`
	Volume     float64 `json:"volume"`
}

// RunView is an interest run as served by the API.
// Observations and entries are only filled by the single-run endpoint.
type RunView struct {
	ID            string      `json:"id"`
	LendingTicker string      `json:"lending_ticker"`
	TargetTicker  string      `json:"target_ticker,omitempty"`
	Start         int64       `json:"start"`
	End           int64       `json:"end"`
	Observations  int         `json:"observations"`
	Entries       int         `json:"entries"`
	Slope         float64     `json:"slope"`
	Growing       bool        `json:"growing"`
	Aligned       bool        `json:"aligned"`
	RateChange    float64     `json:"rate_change"`
	PriceChange   float64     `json:"price_change_pct"`
	Rates         []RateView  `json:"rates,omitempty"`
	InterestRows  []EntryView `json:"interest_entries,omitempty"`
}

// DealView is a deal record as served by the API.
type DealView struct {
	DealID       string  `json:"deal_id"`
	RunID        string  `json:"run_id"`
	StrategyID   string  `json:"strategy_id"`
	Ticker       string  `json:"ticker"`
	Target       string  `json:"target"`
	EntryTime    int64   `json:"entry_time"`
	EntryPrice   float64 `json:"entry_price"`
	ExitTime     int64   `json:"exit_time"`
	ExitPrice    float64 `json:"exit_price"`
	ExitReason   string  `json:"exit_reason"`
	Outcome      float64 `json:"outcome"`
	OutcomeClass string  `json:"outcome_class"`
	Growing      bool    `json:"growing"`
}

// StatsView is the per-strategy deal statistics served by the API.
type StatsView struct {
	StrategyID           string  `json:"strategy_id"`
	TotalDeals           int     `json:"total_deals"`
	Wins                 int     `json:"wins"`
	Losses               int     `json:"losses"`
	WinRate              float64 `json:"win_rate"`
	GrowingWinRate       float64 `json:"growing_win_rate"`
	NonGrowingWinRate    float64 `json:"non_growing_win_rate"`
	OutcomeMean          float64 `json:"outcome_mean"`
	OutcomeMedian        float64 `json:"outcome_median"`
	OutcomeMin           float64 `json:"outcome_min"`
	OutcomeMax           float64 `json:"outcome_max"`
	OutcomeStddev        float64 `json:"outcome_stddev"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

func newStatsView(s *domain.DealStats) StatsView {
	return StatsView{
		StrategyID:           s.StrategyID,
		TotalDeals:           s.TotalDeals,
		Wins:                 s.Wins,
		Losses:               s.Losses,
		WinRate:              s.WinRate,
		GrowingWinRate:       s.GrowingWinRate,
		NonGrowingWinRate:    s.NonGrowingWinRate,
		OutcomeMean:          s.OutcomeMean,
		OutcomeMedian:        s.OutcomeMedian,
		OutcomeMin:           s.OutcomeMin,
		OutcomeMax:           s.OutcomeMax,
		OutcomeStddev:        s.OutcomeStddev,
		MaxDrawdown:          s.MaxDrawdown,
		MaxConsecutiveLosses: s.MaxConsecutiveLosses,
	}
}

func newRunView(r *domain.InterestRun, detailed bool) RunView {
	v := RunView{
		ID:            r.ID,
		LendingTicker: r.Ticker,
		TargetTicker:  r.TargetTicker,
		Start:         r.Start,
		End:           r.End,
		Observations:  len(r.Observations),
		Entries:       len(r.InterestEntries),
		Slope:         r.Slope,
		Growing:       r.Growing,
		Aligned:       r.Aligned,
		RateChange:    r.RateChange(),
		PriceChange:   r.PriceChangePct(),
	}
	if !detailed {
		return v
	}

	v.Rates = make([]RateView, len(r.Observations))
	for i, o := range r.Observations {
		v.Rates[i] = RateView{Timestamp: o.Timestamp, Rate: o.Rate}
	}
	v.InterestRows = make([]EntryView, len(r.InterestEntries))
	for i, e := range r.InterestEntries {
		v.InterestRows[i] = EntryView{Timestamp: e.Timestamp, ClosePrice: e.ClosePrice, Volume: e.Volume}
	}
	return v
}

func newDealView(d *domain.DealRecord) DealView {
	return DealView{
		DealID:       d.DealID,
		RunID:        d.RunID,
		StrategyID:   d.StrategyID,
		Ticker:       d.Ticker,
		Target:       d.Target,
		EntryTime:    d.EntryTime,
		EntryPrice:   d.EntryPrice,
		ExitTime:     d.ExitTime,
		ExitPrice:    d.ExitPrice,
		ExitReason:   d.ExitReason,
		Outcome:      d.Outcome,
		OutcomeClass: d.OutcomeClass,
		Growing:      d.Growing,
	}
}
