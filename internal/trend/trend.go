// Package trend classifies interest runs by the slope of a least-squares
// fit of lending rate against timestamp.
package trend

import (
	"fmt"

	"lending-interest-lab/internal/domain"
)

// Slope returns the ordinary least-squares slope of rate over timestamp
// (rate units per second). Timestamps are centered on their mean before
// fitting so large Unix values do not cost precision.
//
// Fails with domain.ErrInvalidArgument for fewer than 2 observations or
// when every observation shares one timestamp.
func Slope(observations []*domain.RateObservation) (float64, error) {
	n := len(observations)
	if n < 2 {
		return 0, fmt.Errorf("%w: slope needs at least 2 observations, got %d", domain.ErrInvalidArgument, n)
	}

	var meanX, meanY float64
	for _, o := range observations {
		if o == nil {
			return 0, fmt.Errorf("%w: nil observation", domain.ErrInvalidArgument)
		}
		meanX += float64(o.Timestamp)
		meanY += o.Rate
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var sxy, sxx float64
	for _, o := range observations {
		dx := float64(o.Timestamp) - meanX
		sxy += dx * (o.Rate - meanY)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, fmt.Errorf("%w: observations share a single timestamp", domain.ErrInvalidArgument)
	}

	return sxy / sxx, nil
}

// Classify reports whether the run is growing: true iff the fitted slope
// is strictly positive.
func Classify(run *domain.InterestRun) (bool, error) {
	if run == nil {
		return false, fmt.Errorf("%w: nil run", domain.ErrInvalidArgument)
	}
	slope, err := Slope(run.Observations)
	if err != nil {
		return false, err
	}
	return slope > 0, nil
}

// Annotate classifies the run and records the slope and verdict on it.
func Annotate(run *domain.InterestRun) error {
	if run == nil {
		return fmt.Errorf("%w: nil run", domain.ErrInvalidArgument)
	}
	slope, err := Slope(run.Observations)
	if err != nil {
		return err
	}
	run.Slope = slope
	run.Growing = slope > 0
	return nil
}
