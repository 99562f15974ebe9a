package pipeline

import (
	"context"
	"fmt"
	"time"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains the checks of every pair.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
}

// SufficiencyConfig holds the check thresholds.
type SufficiencyConfig struct {
	MinObservations int   // lending observations per pair
	MinCoverageDays int   // continuous days with at least one lending observation
	WindowDuration  int64 // seconds; the window count must not exceed the observation count
}

// DefaultSufficiencyConfig returns the default thresholds for the given window.
func DefaultSufficiencyConfig(windowDuration int64) SufficiencyConfig {
	return SufficiencyConfig{
		MinObservations: 100,
		MinCoverageDays: 7,
		WindowDuration:  windowDuration,
	}
}

// SufficiencyChecker validates stored data before analysis.
type SufficiencyChecker struct {
	rateStore  storage.RateObservationStore
	priceStore storage.PriceObservationStore
	config     SufficiencyConfig
}

// NewSufficiencyChecker creates a new sufficiency checker.
func NewSufficiencyChecker(
	rateStore storage.RateObservationStore,
	priceStore storage.PriceObservationStore,
	config SufficiencyConfig,
) *SufficiencyChecker {
	return &SufficiencyChecker{
		rateStore:  rateStore,
		priceStore: priceStore,
		config:     config,
	}
}

// Check performs the sufficiency checks for every pair:
//  1. Lending observations >= MinObservations
//  2. Lending coverage >= MinCoverageDays continuous days
//  3. Window count <= observation count
//  4. Target price observations > 0 (pairs with a target only)
func (c *SufficiencyChecker) Check(ctx context.Context, pairs []domain.Pair) (*SufficiencyResult, error) {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 4*len(pairs)),
		AllPass: true,
	}
	add := func(check SufficiencyCheck) {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
		}
	}

	for _, p := range pairs {
		rates, err := loadRange(ctx, c.rateStore, p)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s observations: %w", p.LendingTicker, err)
		}

		add(c.checkObservationCount(p, rates))
		add(c.checkCoverage(p, rates))
		add(c.checkWindowCount(p, rates))

		if p.TargetTicker == "" {
			continue
		}
		check, err := c.checkTargetPrices(ctx, p, rates)
		if err != nil {
			return nil, err
		}
		add(check)
	}

	return result, nil
}

func loadRange(ctx context.Context, store storage.RateObservationStore, p domain.Pair) ([]*domain.RateObservation, error) {
	if p.From == 0 && p.To == 0 {
		return store.GetByTicker(ctx, p.LendingTicker)
	}
	to := p.To
	if to == 0 {
		to = time.Now().Unix()
	}
	return store.GetByTimeRange(ctx, p.LendingTicker, p.From, to)
}

// checkObservationCount: lending observations >= MinObservations.
func (c *SufficiencyChecker) checkObservationCount(p domain.Pair, rates []*domain.RateObservation) SufficiencyCheck {
	return SufficiencyCheck{
		Name:      fmt.Sprintf("%s lending observations", p.LendingTicker),
		Threshold: fmt.Sprintf(">= %d", c.config.MinObservations),
		Actual:    fmt.Sprintf("%d", len(rates)),
		Pass:      len(rates) >= c.config.MinObservations,
	}
}

// checkCoverage: longest run of consecutive UTC days holding at least one
// lending observation >= MinCoverageDays.
func (c *SufficiencyChecker) checkCoverage(p domain.Pair, rates []*domain.RateObservation) SufficiencyCheck {
	name := fmt.Sprintf("%s lending coverage", p.LendingTicker)
	threshold := fmt.Sprintf(">= %d days (continuous)", c.config.MinCoverageDays)
	if len(rates) == 0 {
		return SufficiencyCheck{Name: name, Threshold: threshold, Actual: "0 days", Pass: false}
	}

	days := make(map[int64]bool)
	for _, o := range rates {
		days[o.Timestamp/86400] = true
	}

	first := rates[0].Timestamp / 86400
	last := rates[len(rates)-1].Timestamp / 86400
	longest, current := 0, 0
	for d := first; d <= last; d++ {
		if days[d] {
			current++
		} else {
			// Gap detected - restart count
			current = 0
		}
		if current > longest {
			longest = current
		}
	}

	return SufficiencyCheck{
		Name:      name,
		Threshold: threshold,
		Actual:    fmt.Sprintf("%d continuous days (%d total)", longest, last-first+1),
		Pass:      longest >= c.config.MinCoverageDays,
	}
}

// checkWindowCount: segmenting the series must not yield more windows than observations.
func (c *SufficiencyChecker) checkWindowCount(p domain.Pair, rates []*domain.RateObservation) SufficiencyCheck {
	name := fmt.Sprintf("%s windows of %ds", p.LendingTicker, c.config.WindowDuration)
	threshold := fmt.Sprintf("<= %d (observations)", len(rates))
	if len(rates) < 2 || c.config.WindowDuration <= 0 {
		return SufficiencyCheck{Name: name, Threshold: threshold, Actual: "n/a", Pass: false}
	}

	span := rates[len(rates)-1].Timestamp - rates[0].Timestamp
	windows := span / c.config.WindowDuration
	if span%c.config.WindowDuration != 0 {
		windows++
	}
	return SufficiencyCheck{
		Name:      name,
		Threshold: threshold,
		Actual:    fmt.Sprintf("%d", windows),
		Pass:      windows > 0 && windows <= int64(len(rates)),
	}
}

// checkTargetPrices: the target has prices within the lending span.
func (c *SufficiencyChecker) checkTargetPrices(ctx context.Context, p domain.Pair, rates []*domain.RateObservation) (SufficiencyCheck, error) {
	check := SufficiencyCheck{
		Name:      fmt.Sprintf("%s prices over %s span", p.TargetTicker, p.LendingTicker),
		Threshold: "> 0",
		Actual:    "0",
	}
	if len(rates) == 0 {
		return check, nil
	}
	prices, err := c.priceStore.GetByTimeRange(ctx, p.TargetTicker, rates[0].Timestamp, rates[len(rates)-1].Timestamp)
	if err != nil {
		return check, fmt.Errorf("failed to get %s prices: %w", p.TargetTicker, err)
	}
	check.Actual = fmt.Sprintf("%d", len(prices))
	check.Pass = len(prices) > 0
	return check, nil
}
