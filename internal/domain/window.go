package domain

import "fmt"

// Window is a fixed-duration bucket of consecutive rate observations.
// Observations are strictly ascending by timestamp and lie in [Start, End].
type Window struct {
	Ticker       string
	Start        int64 // Unix seconds, inclusive
	End          int64 // Unix seconds, inclusive, End >= Start
	Observations []*RateObservation
}

// Len returns the number of observations in the window.
func (w *Window) Len() int {
	return len(w.Observations)
}

// Duration returns End - Start in seconds.
func (w *Window) Duration() int64 {
	return w.End - w.Start
}

// RateSum returns the sum of observation rates.
func (w *Window) RateSum() float64 {
	var sum float64
	for _, o := range w.Observations {
		sum += o.Rate
	}
	return sum
}

// AverageRate returns the mean lending rate of the window.
// The average of an empty window is undefined and reported as ErrInvalidArgument.
func (w *Window) AverageRate() (float64, error) {
	if len(w.Observations) == 0 {
		return 0, fmt.Errorf("%w: average rate of empty window [%d, %d]", ErrInvalidArgument, w.Start, w.End)
	}
	return w.RateSum() / float64(len(w.Observations)), nil
}

// Contains reports whether ts lies in [Start, End].
func (w *Window) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}

// Validate checks bounds, ordering and membership of the observations.
func (w *Window) Validate() error {
	if w.End < w.Start {
		return fmt.Errorf("%w: window end %d before start %d", ErrInvalidArgument, w.End, w.Start)
	}
	if err := CheckStrictlyAscending(w.Observations); err != nil {
		return err
	}
	for _, o := range w.Observations {
		if !w.Contains(o.Timestamp) {
			return fmt.Errorf("%w: observation at %d outside window [%d, %d]",
				ErrInvalidArgument, o.Timestamp, w.Start, w.End)
		}
	}
	return nil
}

// String returns a short human readable form.
func (w *Window) String() string {
	return fmt.Sprintf("[Window] %s %d..%d, %d observations", w.Ticker, w.Start, w.End, len(w.Observations))
}

// CheckStrictlyAscending returns ErrInvalidArgument if observations are nil
// or not strictly ascending by timestamp.
func CheckStrictlyAscending(obs []*RateObservation) error {
	for i, o := range obs {
		if o == nil {
			return fmt.Errorf("%w: nil observation at index %d", ErrInvalidArgument, i)
		}
		if i > 0 && obs[i-1].Timestamp >= o.Timestamp {
			return fmt.Errorf("%w: observations not strictly ascending at index %d (%d >= %d)",
				ErrInvalidArgument, i, obs[i-1].Timestamp, o.Timestamp)
		}
	}
	return nil
}

// CheckPricesStrictlyAscending is CheckStrictlyAscending for price series.
func CheckPricesStrictlyAscending(obs []*PriceObservation) error {
	for i, o := range obs {
		if o == nil {
			return fmt.Errorf("%w: nil price observation at index %d", ErrInvalidArgument, i)
		}
		if i > 0 && obs[i-1].Timestamp >= o.Timestamp {
			return fmt.Errorf("%w: price observations not strictly ascending at index %d (%d >= %d)",
				ErrInvalidArgument, i, obs[i-1].Timestamp, o.Timestamp)
		}
	}
	return nil
}
