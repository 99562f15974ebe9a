package domain

import "fmt"

// InterestRun is a sub-period where the lending rate stayed at or above the
// contemporaneous average for at least the minimum number of observations.
// It may span several windows.
type InterestRun struct {
	Window

	ID           string // deterministic hash, assigned when persisted
	TargetTicker string // ticker of the aligned secondary series, empty until aligned

	// InterestEntries is the secondary (price) series aligned to [Start, End].
	InterestEntries []*PriceObservation

	// Classification, filled by the trend classifier.
	Slope   float64 // rate change per second
	Growing bool

	// Aligned is set once Alignment has run; a run is aligned at most once.
	Aligned bool
}

// NewInterestRun builds a run over the given lending observations.
// Start and End are the first and last observation timestamps.
func NewInterestRun(ticker string, obs []*RateObservation) (*InterestRun, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: interest run needs at least one observation", ErrInvalidArgument)
	}
	if err := CheckStrictlyAscending(obs); err != nil {
		return nil, err
	}
	return &InterestRun{
		Window: Window{
			Ticker:       ticker,
			Start:        obs[0].Timestamp,
			End:          obs[len(obs)-1].Timestamp,
			Observations: obs,
		},
	}, nil
}

// FirstObservation returns the earliest lending observation, or nil.
func (r *InterestRun) FirstObservation() *RateObservation {
	if len(r.Observations) == 0 {
		return nil
	}
	return r.Observations[0]
}

// LastObservation returns the latest lending observation, or nil.
func (r *InterestRun) LastObservation() *RateObservation {
	if len(r.Observations) == 0 {
		return nil
	}
	return r.Observations[len(r.Observations)-1]
}

// RateChange returns last rate minus first rate.
func (r *InterestRun) RateChange() float64 {
	first, last := r.FirstObservation(), r.LastObservation()
	if first == nil {
		return 0
	}
	return last.Rate - first.Rate
}

// PriceChangePct returns the relative change of the close price over the
// aligned interest entries, or 0 when fewer than two entries are present.
func (r *InterestRun) PriceChangePct() float64 {
	if len(r.InterestEntries) < 2 {
		return 0
	}
	first := r.InterestEntries[0].ClosePrice
	last := r.InterestEntries[len(r.InterestEntries)-1].ClosePrice
	return last/first - 1
}

// String returns a short human readable form.
func (r *InterestRun) String() string {
	return fmt.Sprintf("[InterestRun] %s %d..%d, %d lending entries, %d interest entries",
		r.Ticker, r.Start, r.End, len(r.Observations), len(r.InterestEntries))
}
