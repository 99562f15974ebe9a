// Package scanner finds interest runs: stretches where the lending rate stays
// at or above the average of its window.
package scanner

import (
	"fmt"

	"lending-interest-lab/internal/domain"
)

// DefaultMinRunLength is the minimum number of qualifying observations for a run to be emitted.
const DefaultMinRunLength = 10

// Scan walks the windows in order and returns the interest runs found,
// ordered by start timestamp.
//
// Within a window an observation qualifies when its rate is >= the window
// average. A run ends at the last qualifying observation before the first
// non-qualifying one. Runs with fewer than minRunLength observations are
// dropped.
//
// A run still open when its window is exhausted continues into the following
// windows. In each later window the bar is a cumulative average over the
// originating window plus that window's observations considered so far,
// recomputed at each step; entries of windows already crossed do not count.
// The continuation stops at the first observation below that average; the run is
// emitted (subject to minRunLength) and scanning resumes with the window after
// the one holding the stopping observation. A run still open when the input
// is exhausted is dropped.
//
// Empty input yields an empty result. Windows must be non-nil, valid, share
// a ticker and hold globally ascending observations; otherwise Scan fails
// with domain.ErrInvalidArgument.
func Scan(windows []*domain.Window, minRunLength int) ([]*domain.InterestRun, error) {
	if minRunLength <= 0 {
		return nil, fmt.Errorf("%w: min run length must be positive, got %d", domain.ErrInvalidArgument, minRunLength)
	}
	if err := validateWindows(windows); err != nil {
		return nil, err
	}

	var runs []*domain.InterestRun

	i := 0
	for i < len(windows) {
		w := windows[i]
		if len(w.Observations) == 0 {
			i++
			continue
		}

		avg, err := w.AverageRate()
		if err != nil {
			return nil, err
		}

		var entries []*domain.RateObservation
		for _, o := range w.Observations {
			if o.Rate >= avg {
				entries = append(entries, o)
				continue
			}
			if len(entries) > 0 {
				runs = appendRun(runs, w.Ticker, entries, minRunLength)
				entries = nil
			}
		}

		if len(entries) == 0 {
			i++
			continue
		}

		next, extended, closed := continueRun(windows, i, entries)
		if closed {
			runs = appendRun(runs, w.Ticker, extended, minRunLength)
		}
		i = next
	}

	return runs, nil
}

// continueRun extends a run left open at the end of windows[origin] into the
// following windows. It returns the index of the window to resume scanning
// from, the extended entries, and whether a stopping observation was found.
func continueRun(windows []*domain.Window, origin int, entries []*domain.RateObservation) (int, []*domain.RateObservation, bool) {
	baseCount := windows[origin].Len()
	baseSum := windows[origin].RateSum()

	for k := origin + 1; k < len(windows); k++ {
		count, sum := baseCount, baseSum
		for _, o := range windows[k].Observations {
			count++
			sum += o.Rate
			if o.Rate < sum/float64(count) {
				return k + 1, entries, true
			}
			entries = append(entries, o)
		}
	}

	return len(windows), entries, false
}

// appendRun emits a run over entries if it is long enough.
// Start and end are the first and last qualifying observations.
func appendRun(runs []*domain.InterestRun, ticker string, entries []*domain.RateObservation, minRunLength int) []*domain.InterestRun {
	if len(entries) < minRunLength {
		return runs
	}
	obs := make([]*domain.RateObservation, len(entries))
	copy(obs, entries)
	return append(runs, &domain.InterestRun{
		Window: domain.Window{
			Ticker:       ticker,
			Start:        obs[0].Timestamp,
			End:          obs[len(obs)-1].Timestamp,
			Observations: obs,
		},
	})
}

func validateWindows(windows []*domain.Window) error {
	var lastTs int64
	seen := false

	for i, w := range windows {
		if w == nil {
			return fmt.Errorf("%w: nil window at index %d", domain.ErrInvalidArgument, i)
		}
		if err := w.Validate(); err != nil {
			return fmt.Errorf("window %d: %w", i, err)
		}
		if i > 0 {
			if windows[i-1].Ticker != w.Ticker {
				return fmt.Errorf("%w: window %d ticker %q differs from %q",
					domain.ErrInvalidArgument, i, w.Ticker, windows[i-1].Ticker)
			}
			if w.Start < windows[i-1].Start {
				return fmt.Errorf("%w: window %d starts before window %d", domain.ErrInvalidArgument, i, i-1)
			}
		}
		for _, o := range w.Observations {
			if seen && o.Timestamp <= lastTs {
				return fmt.Errorf("%w: observation %d in window %d not after %d",
					domain.ErrInvalidArgument, o.Timestamp, i, lastTs)
			}
			lastTs = o.Timestamp
			seen = true
		}
	}
	return nil
}
