package ingestion

import (
	"errors"
	"sort"

	"lending-interest-lab/internal/domain"
)

// ErrInvalidOrdering is returned when observations are not strictly ascending by timestamp.
var ErrInvalidOrdering = errors.New("observations are not in strictly ascending order")

// SortRateObservations orders observations by timestamp ASC. The sort is
// stable so later duplicates stay after earlier ones.
func SortRateObservations(obs []*domain.RateObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Timestamp < obs[j].Timestamp
	})
}

// SortPriceObservations orders observations by timestamp ASC.
func SortPriceObservations(obs []*domain.PriceObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Timestamp < obs[j].Timestamp
	})
}

// DedupRateObservations drops repeated timestamps from a sorted slice,
// keeping the last observation of each timestamp.
func DedupRateObservations(obs []*domain.RateObservation) []*domain.RateObservation {
	if len(obs) < 2 {
		return obs
	}
	out := obs[:0:0]
	for i, o := range obs {
		if i+1 < len(obs) && obs[i+1].Timestamp == o.Timestamp {
			continue
		}
		out = append(out, o)
	}
	return out
}

// DedupPriceObservations drops repeated timestamps from a sorted slice,
// keeping the last observation of each timestamp.
func DedupPriceObservations(obs []*domain.PriceObservation) []*domain.PriceObservation {
	if len(obs) < 2 {
		return obs
	}
	out := obs[:0:0]
	for i, o := range obs {
		if i+1 < len(obs) && obs[i+1].Timestamp == o.Timestamp {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ValidateRateOrdering checks that timestamps are strictly ascending.
func ValidateRateOrdering(obs []*domain.RateObservation) error {
	for i := 1; i < len(obs); i++ {
		if obs[i-1].Timestamp >= obs[i].Timestamp {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// ValidatePriceOrdering checks that timestamps are strictly ascending.
func ValidatePriceOrdering(obs []*domain.PriceObservation) error {
	for i := 1; i < len(obs); i++ {
		if obs[i-1].Timestamp >= obs[i].Timestamp {
			return ErrInvalidOrdering
		}
	}
	return nil
}
