// Package segment splits an ordered lending-rate series into fixed-duration windows.
package segment

import (
	"fmt"
	"time"

	"lending-interest-lab/internal/domain"
)

// Segment splits observations into consecutive, non-overlapping windows of
// the given duration (seconds), starting at the earliest timestamp.
//
// Window i spans [start + i*duration, start + (i+1)*duration], the last one
// clamped to the latest timestamp. Membership is half-open, [Start, End),
// for every window except the last, which is closed, so each observation
// belongs to exactly one window. Windows may be empty when the series has gaps.
//
// Observations must be non-empty, strictly ascending and share one ticker.
// Fails with domain.ErrInvalidArgument when:
//   - duration <= 0
//   - observations is empty, unordered or mixes tickers
//   - all timestamps are equal
//   - the window count exceeds the observation count
func Segment(duration int64, observations []*domain.RateObservation) ([]*domain.Window, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: window duration must be positive, got %d", domain.ErrInvalidArgument, duration)
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("%w: no observations to segment", domain.ErrInvalidArgument)
	}
	if err := domain.CheckStrictlyAscending(observations); err != nil {
		return nil, err
	}

	ticker := observations[0].Ticker
	for _, o := range observations {
		if o.Ticker != ticker {
			return nil, fmt.Errorf("%w: mixed tickers %q and %q", domain.ErrInvalidArgument, ticker, o.Ticker)
		}
	}

	start := observations[0].Timestamp
	end := observations[len(observations)-1].Timestamp
	if end == start {
		return nil, fmt.Errorf("%w: observations span a single timestamp %d", domain.ErrInvalidArgument, start)
	}

	span := end - start
	numWindows := span / duration
	if span%duration != 0 {
		numWindows++
	}
	if numWindows > int64(len(observations)) {
		return nil, fmt.Errorf("%w: %d windows of %ds for %d observations",
			domain.ErrInvalidArgument, numWindows, duration, len(observations))
	}

	windows := make([]*domain.Window, numWindows)
	for i := int64(0); i < numWindows; i++ {
		ws := start + i*duration
		we := ws + duration
		if we > end || i == numWindows-1 {
			we = end
		}
		windows[i] = &domain.Window{Ticker: ticker, Start: ws, End: we}
	}

	for _, o := range observations {
		idx := (o.Timestamp - start) / duration
		if idx >= numWindows {
			idx = numWindows - 1
		}
		w := windows[idx]
		w.Observations = append(w.Observations, o)
	}

	return windows, nil
}

// SegmentBy is Segment with a time.Duration window, truncated to whole seconds.
func SegmentBy(d time.Duration, observations []*domain.RateObservation) ([]*domain.Window, error) {
	return Segment(int64(d/time.Second), observations)
}
