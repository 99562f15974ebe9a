// Package alignment attaches a secondary price series to an interest run,
// interpolating the run's boundary lending entries when the two series are
// not stamped at the same instants.
package alignment

import (
	"fmt"

	"lending-interest-lab/internal/domain"
)

// Align selects the prices with timestamp in [run.Start, run.End] and stores
// them as the run's interest entries.
//
// When the first selected price is later than the run's first lending
// observation, the first lending entry is replaced by a rate interpolated
// between the first two lending observations at the price timestamp, and
// run.Start moves forward to it. The tail is handled the same way with the
// last two lending observations. A boundary gap wider than the spacing of
// the two observations used would be an extrapolation and fails with
// domain.ErrInvalidArgument; a gap equal to the spacing drops the boundary
// entry, since the neighbour already sits on the price timestamp.
//
// Align mutates run in place and returns it. It runs at most once per run;
// on error the run is left untouched. Callers must not align the same run
// concurrently.
func Align(run *domain.InterestRun, prices []*domain.PriceObservation) (*domain.InterestRun, error) {
	if run == nil {
		return nil, fmt.Errorf("%w: nil run", domain.ErrInvalidArgument)
	}
	if run.Aligned {
		return nil, fmt.Errorf("%w: run %s already aligned", domain.ErrInvalidArgument, run.Ticker)
	}
	if len(run.Observations) == 0 {
		return nil, fmt.Errorf("%w: run has no lending observations", domain.ErrInvalidArgument)
	}
	if err := domain.CheckStrictlyAscending(run.Observations); err != nil {
		return nil, err
	}
	if err := domain.CheckPricesStrictlyAscending(prices); err != nil {
		return nil, err
	}

	selected := selectRange(prices, run.Start, run.End)
	if len(selected) == 0 {
		run.InterestEntries = []*domain.PriceObservation{}
		run.Aligned = true
		return run, nil
	}

	// Work on a copy; observations are shared read-only with their windows.
	obs := make([]*domain.RateObservation, len(run.Observations))
	copy(obs, run.Observations)

	var err error
	if first := selected[0].Timestamp; first > obs[0].Timestamp {
		obs, err = alignHead(obs, first)
		if err != nil {
			return nil, err
		}
	}
	if last := selected[len(selected)-1].Timestamp; last < obs[len(obs)-1].Timestamp {
		obs, err = alignTail(obs, last)
		if err != nil {
			return nil, err
		}
	}
	if err := domain.CheckStrictlyAscending(obs); err != nil {
		return nil, fmt.Errorf("aligned run: %w", err)
	}

	run.Observations = obs
	run.Start = obs[0].Timestamp
	run.End = obs[len(obs)-1].Timestamp
	run.InterestEntries = selected
	run.TargetTicker = selected[0].Ticker
	run.Aligned = true
	return run, nil
}

func selectRange(prices []*domain.PriceObservation, start, end int64) []*domain.PriceObservation {
	out := []*domain.PriceObservation{}
	for _, p := range prices {
		if p.Timestamp < start {
			continue
		}
		if p.Timestamp > end {
			break
		}
		out = append(out, p)
	}
	return out
}

func alignHead(obs []*domain.RateObservation, ts int64) ([]*domain.RateObservation, error) {
	if len(obs) < 2 {
		return nil, fmt.Errorf("%w: head alignment needs 2 lending observations", domain.ErrInvalidArgument)
	}
	a, b := obs[0], obs[1]
	spacing := b.Timestamp - a.Timestamp
	gap := ts - a.Timestamp
	switch {
	case gap > spacing:
		return nil, fmt.Errorf("%w: price series starts %ds after run start, beyond lending spacing %ds",
			domain.ErrInvalidArgument, gap, spacing)
	case gap == spacing:
		return obs[1:], nil
	}
	obs[0] = interpolate(a, b, ts)
	return obs, nil
}

func alignTail(obs []*domain.RateObservation, ts int64) ([]*domain.RateObservation, error) {
	n := len(obs)
	if n < 2 {
		return nil, fmt.Errorf("%w: tail alignment needs 2 lending observations", domain.ErrInvalidArgument)
	}
	a, b := obs[n-2], obs[n-1]
	spacing := b.Timestamp - a.Timestamp
	gap := b.Timestamp - ts
	switch {
	case gap > spacing:
		return nil, fmt.Errorf("%w: price series ends %ds before run end, beyond lending spacing %ds",
			domain.ErrInvalidArgument, gap, spacing)
	case gap == spacing:
		return obs[:n-1], nil
	}
	obs[n-1] = interpolate(a, b, ts)
	return obs, nil
}

// interpolate returns a synthetic observation at ts on the line through a and b.
func interpolate(a, b *domain.RateObservation, ts int64) *domain.RateObservation {
	frac := float64(ts-a.Timestamp) / float64(b.Timestamp-a.Timestamp)
	return &domain.RateObservation{
		Ticker:    a.Ticker,
		Timestamp: ts,
		Rate:      a.Rate + (b.Rate-a.Rate)*frac,
	}
}
