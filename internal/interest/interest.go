// Package interest composes the scanner and the trend classifier into the
// grown / non-grown interest run split consumed by reporting.
package interest

import (
	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/scanner"
	"lending-interest-lab/internal/segment"
	"lending-interest-lab/internal/trend"
)

// Intervals scans windows for interest runs and partitions them by trend.
// Every emitted run lands in exactly one of the two slices, each ordered
// by run start. Slope and Growing are set on every run.
func Intervals(windows []*domain.Window, minRunLength int) (grown, nonGrown []*domain.InterestRun, err error) {
	runs, err := scanner.Scan(windows, minRunLength)
	if err != nil {
		return nil, nil, err
	}
	return Partition(runs)
}

// Partition classifies runs and splits them into growing and non-growing.
func Partition(runs []*domain.InterestRun) (grown, nonGrown []*domain.InterestRun, err error) {
	grown = []*domain.InterestRun{}
	nonGrown = []*domain.InterestRun{}
	for _, r := range runs {
		if err := trend.Annotate(r); err != nil {
			return nil, nil, err
		}
		if r.Growing {
			grown = append(grown, r)
		} else {
			nonGrown = append(nonGrown, r)
		}
	}
	return grown, nonGrown, nil
}

// Analyze segments a raw series with the given window duration (seconds)
// and returns the partitioned interest runs.
func Analyze(duration int64, observations []*domain.RateObservation, minRunLength int) (grown, nonGrown []*domain.InterestRun, err error) {
	windows, err := segment.Segment(duration, observations)
	if err != nil {
		return nil, nil, err
	}
	return Intervals(windows, minRunLength)
}
