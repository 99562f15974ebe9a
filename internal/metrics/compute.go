// Package metrics summarises interest runs and deal outcomes.
package metrics

import (
	"math"
	"sort"

	"lending-interest-lab/internal/domain"
)

// ComputeRunStats summarises the growing and non-growing runs of one pair.
func ComputeRunStats(grown, nonGrown []*domain.InterestRun) *domain.RunStats {
	total := len(grown) + len(nonGrown)
	stats := &domain.RunStats{
		TotalRuns:      total,
		GrowingRuns:    len(grown),
		NonGrowingRuns: len(nonGrown),
	}
	if total == 0 {
		return stats
	}
	stats.GrowingShare = float64(len(grown)) / float64(total)

	entries := make([]float64, 0, total)
	durations := make([]float64, 0, total)
	for _, group := range [][]*domain.InterestRun{grown, nonGrown} {
		for _, r := range group {
			entries = append(entries, float64(len(r.Observations)))
			durations = append(durations, float64(r.End-r.Start))
		}
	}

	stats.MeanEntries = computeMean(entries)
	sort.Float64s(entries)
	stats.MedianEntries = computePercentile(entries, 0.50)
	stats.MeanDurationSec = computeMean(durations)

	stats.MeanPriceChangeGrowing = meanPriceChange(grown)
	stats.MeanPriceChangeNonGrowing = meanPriceChange(nonGrown)

	return stats
}

// meanPriceChange averages PriceChangePct over runs with at least two interest entries.
func meanPriceChange(runs []*domain.InterestRun) float64 {
	var changes []float64
	for _, r := range runs {
		if len(r.InterestEntries) >= 2 {
			changes = append(changes, r.PriceChangePct())
		}
	}
	return computeMean(changes)
}

// ComputeDealStats calculates outcome statistics over deals of one strategy.
// Deals are ordered by EntryTime ASC, DealID ASC before the order-dependent
// metrics (MaxDrawdown, MaxConsecutiveLosses).
func ComputeDealStats(strategyID string, deals []*domain.DealRecord) *domain.DealStats {
	n := len(deals)
	if n == 0 {
		return &domain.DealStats{StrategyID: strategyID}
	}

	sorted := make([]*domain.DealRecord, n)
	copy(sorted, deals)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].EntryTime != sorted[j].EntryTime {
			return sorted[i].EntryTime < sorted[j].EntryTime
		}
		return sorted[i].DealID < sorted[j].DealID
	})

	wins := 0
	var growingWins, growingTotal, otherWins, otherTotal int
	outcomes := make([]float64, n)
	for i, d := range sorted {
		outcomes[i] = d.Outcome
		win := d.OutcomeClass == domain.OutcomeClassWin
		if win {
			wins++
		}
		if d.Growing {
			growingTotal++
			if win {
				growingWins++
			}
		} else {
			otherTotal++
			if win {
				otherWins++
			}
		}
	}

	sortedOutcomes := make([]float64, n)
	copy(sortedOutcomes, outcomes)
	sort.Float64s(sortedOutcomes)

	mean := computeMean(outcomes)

	return &domain.DealStats{
		StrategyID: strategyID,

		TotalDeals: n,
		Wins:       wins,
		Losses:     n - wins,
		WinRate:    computeWinRate(wins, n),

		GrowingWinRate:    computeWinRate(growingWins, growingTotal),
		NonGrowingWinRate: computeWinRate(otherWins, otherTotal),

		OutcomeMean:   mean,
		OutcomeMedian: computePercentile(sortedOutcomes, 0.50),
		OutcomeP10:    computePercentile(sortedOutcomes, 0.10),
		OutcomeP90:    computePercentile(sortedOutcomes, 0.90),
		OutcomeMin:    sortedOutcomes[0],
		OutcomeMax:    sortedOutcomes[n-1],
		OutcomeStddev: computeStddev(outcomes, mean),

		MaxDrawdown:          computeMaxDrawdown(outcomes),
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(outcomes),
	}
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation. sorted must be ASC.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown is the worst peak-to-trough drop of cumulative outcomes.
// Outcomes must be in chronological order.
func computeMaxDrawdown(outcomes []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, o := range outcomes {
		cumulative += o
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of outcome <= 0.
func computeMaxConsecutiveLosses(outcomes []float64) int {
	maxStreak := 0
	streak := 0
	for _, o := range outcomes {
		if o <= 0 {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return maxStreak
}
