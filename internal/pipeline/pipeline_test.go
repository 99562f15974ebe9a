package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/orchestrator"
	"lending-interest-lab/internal/reporting"
	"lending-interest-lab/internal/storage/memory"
)

type stores struct {
	rates  *memory.RateObservationStore
	prices *memory.PriceObservationStore
	runs   *memory.InterestRunStore
	deals  *memory.DealRecordStore
}

func newStores() stores {
	return stores{
		rates:  memory.NewRateObservationStore(),
		prices: memory.NewPriceObservationStore(),
		runs:   memory.NewInterestRunStore(),
		deals:  memory.NewDealRecordStore(),
	}
}

func newPipeline(s stores, pairs []domain.Pair, dir string) *Pipeline {
	orch := orchestrator.New(orchestrator.Options{
		RateStore:      s.rates,
		PriceStore:     s.prices,
		RunStore:       s.runs,
		DealStore:      s.deals,
		Pairs:          pairs,
		WindowDuration: 86400,
		MinRunLength:   10,
		DealConfigs: []domain.DealConfig{
			{Entry: domain.EntryAtStart, Exit: domain.ExitOnBelowAverage},
		},
	})
	return New(orch, reporting.NewGenerator(s.runs, s.deals), pairs, dir).
		WithSufficiencyChecker(NewSufficiencyChecker(s.rates, s.prices, DefaultSufficiencyConfig(86400))).
		WithClock(func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) })
}

func TestPipeline_Run_Fixtures(t *testing.T) {
	ctx := context.Background()
	s := newStores()

	pairs, err := LoadFixtures(ctx, s.rates, s.prices)
	if err != nil {
		t.Fatalf("LoadFixtures failed: %v", err)
	}
	if len(pairs) != len(FixturePairs) {
		t.Fatalf("expected %d pairs, got %d", len(FixturePairs), len(pairs))
	}

	dir := t.TempDir()
	report, result, err := newPipeline(s, pairs, dir).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.RunsCreated == 0 {
		t.Fatal("expected fixture data to produce interest runs")
	}
	if report.Summary.TotalRuns != result.RunsCreated {
		t.Errorf("report runs %d != created runs %d", report.Summary.TotalRuns, result.RunsCreated)
	}
	if report.Summary.TotalDeals != result.DealsCreated {
		t.Errorf("report deals %d != created deals %d", report.Summary.TotalDeals, result.DealsCreated)
	}

	if got := len(report.DataQuality.SufficiencyChecks); got != 8 {
		t.Errorf("expected 8 sufficiency checks, got %d", got)
	}
	if !report.DataQuality.AllChecksPassed {
		t.Errorf("expected all checks to pass: %+v", report.DataQuality)
	}

	md, err := os.ReadFile(filepath.Join(dir, reporting.ReportFile))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(md), "## BTC / XMR") || !strings.Contains(string(md), "## USD / ETH") {
		t.Error("report missing pair sections")
	}
	for _, name := range []string{reporting.RunsFile, reporting.EntriesFile, reporting.DealsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestPipeline_Run_ReportsPairErrors(t *testing.T) {
	ctx := context.Background()
	s := newStores()

	pairs := []domain.Pair{{LendingTicker: "LTC", TargetTicker: "XMR"}}
	report, result, err := newPipeline(s, pairs, t.TempDir()).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 pair error, got %v", result.Errors)
	}
	if report.DataQuality.AllChecksPassed {
		t.Error("expected data quality to fail")
	}
	if len(report.DataQuality.IntegrityErrors) == 0 || !strings.Contains(report.DataQuality.IntegrityErrors[0], "LTC/XMR") {
		t.Errorf("expected integrity error for LTC/XMR, got %v", report.DataQuality.IntegrityErrors)
	}
}

func TestSufficiencyChecker_Insufficient(t *testing.T) {
	ctx := context.Background()
	s := newStores()

	// Three days of hourly data with a one-day gap.
	var obs []*domain.RateObservation
	for _, day := range []int64{0, 2, 3} {
		for h := int64(0); h < 24; h++ {
			ts := FixtureStart + day*86400 + h*3600
			obs = append(obs, &domain.RateObservation{Ticker: "BTC", Timestamp: ts, Rate: 0.01})
		}
	}
	if err := s.rates.InsertBulk(ctx, obs); err != nil {
		t.Fatalf("insert: %v", err)
	}

	checker := NewSufficiencyChecker(s.rates, s.prices, DefaultSufficiencyConfig(86400))
	result, err := checker.Check(ctx, []domain.Pair{{LendingTicker: "BTC", TargetTicker: "XMR"}})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if result.AllPass {
		t.Error("expected checks to fail")
	}
	want := map[string]bool{
		"BTC lending observations": false, // 72 < 100
		"BTC lending coverage":     false, // 2 continuous days
		"BTC windows of 86400s":    true,  // 4 windows for 72 observations
		"XMR prices over BTC span": false,
	}
	if len(result.Checks) != len(want) {
		t.Fatalf("expected %d checks, got %d", len(want), len(result.Checks))
	}
	for _, c := range result.Checks {
		pass, ok := want[c.Name]
		if !ok {
			t.Errorf("unexpected check %q", c.Name)
			continue
		}
		if c.Pass != pass {
			t.Errorf("check %q: pass = %v, want %v (actual %s)", c.Name, c.Pass, pass, c.Actual)
		}
	}
}

func TestSufficiencyChecker_NoData(t *testing.T) {
	s := newStores()
	checker := NewSufficiencyChecker(s.rates, s.prices, DefaultSufficiencyConfig(3600))

	result, err := checker.Check(context.Background(), []domain.Pair{{LendingTicker: "BTC"}})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.AllPass {
		t.Error("expected checks to fail without data")
	}
	if len(result.Checks) != 3 {
		t.Errorf("expected 3 checks for a pair without target, got %d", len(result.Checks))
	}
}
