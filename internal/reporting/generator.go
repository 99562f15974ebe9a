package reporting

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/metrics"
	"lending-interest-lab/internal/storage"
)

// Generator produces reports from stored runs and deals.
type Generator struct {
	runStore  storage.InterestRunStore
	dealStore storage.DealRecordStore
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.InterestRunStore, dealStore storage.DealRecordStore) *Generator {
	return &Generator{
		runStore:  runStore,
		dealStore: dealStore,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report over every stored run and deal.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.runStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load runs: %w", err)
	}
	deals, err := g.dealStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load deals: %w", err)
	}
	return Build(g.now(), runs, deals), nil
}

// Build assembles a report from runs and deals already in memory.
func Build(generatedAt time.Time, runs []*domain.InterestRun, deals []*domain.DealRecord) *Report {
	dealsPerRun := make(map[string]int)
	for _, d := range deals {
		dealsPerRun[d.RunID]++
	}

	pairs := generatePairSections(runs, dealsPerRun)

	summary := Summary{
		TotalPairs: len(pairs),
		TotalRuns:  len(runs),
		TotalDeals: len(deals),
	}
	for i, r := range runs {
		if r.Growing {
			summary.GrowingRuns++
		} else {
			summary.NonGrowingRuns++
		}
		if i == 0 || r.Start < summary.DateRangeStart {
			summary.DateRangeStart = r.Start
		}
		if i == 0 || r.End > summary.DateRangeEnd {
			summary.DateRangeEnd = r.End
		}
	}

	return &Report{
		GeneratedAt: generatedAt,
		Summary:     summary,
		DataQuality: DataQualitySection{AllChecksPassed: true},
		Pairs:       pairs,
		DealMetrics: metrics.GroupByStrategy(deals),
		Reproducibility: Reproducibility{
			GeneratorVersion: GeneratorVersion,
			DataVersion:      computeDataVersion(runs, deals),
		},
		Runs:  runs,
		Deals: deals,
	}
}

// generatePairSections groups runs by (lending, target) and splits them by classification.
func generatePairSections(runs []*domain.InterestRun, dealsPerRun map[string]int) []PairSection {
	type key struct{ lending, target string }
	groups := make(map[key][]*domain.InterestRun)
	var keys []key
	for _, r := range runs {
		k := key{r.Ticker, r.TargetTicker}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].lending != keys[j].lending {
			return keys[i].lending < keys[j].lending
		}
		return keys[i].target < keys[j].target
	})

	sections := make([]PairSection, 0, len(keys))
	for _, k := range keys {
		group := groups[k]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Start < group[j].Start })

		var grown, nonGrown []*domain.InterestRun
		section := PairSection{LendingTicker: k.lending, TargetTicker: k.target}
		for _, r := range group {
			row := RunRow{
				RunID:          r.ID,
				Start:          r.Start,
				End:            r.End,
				Observations:   len(r.Observations),
				Entries:        len(r.InterestEntries),
				RateChange:     r.RateChange(),
				Slope:          r.Slope,
				PriceChangePct: r.PriceChangePct(),
				Deals:          dealsPerRun[r.ID],
			}
			if r.Growing {
				grown = append(grown, r)
				section.Growing = append(section.Growing, row)
			} else {
				nonGrown = append(nonGrown, r)
				section.NonGrowing = append(section.NonGrowing, row)
			}
		}
		section.Stats = metrics.ComputeRunStats(grown, nonGrown)
		sections = append(sections, section)
	}
	return sections
}

// computeDataVersion hashes the sorted run and deal IDs.
func computeDataVersion(runs []*domain.InterestRun, deals []*domain.DealRecord) string {
	ids := make([]string, 0, len(runs)+len(deals))
	for _, r := range runs {
		ids = append(ids, "run:"+r.ID)
	}
	for _, d := range deals {
		ids = append(ids, "deal:"+d.DealID)
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
