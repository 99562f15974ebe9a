package reporting

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/storage/memory"
)

func setupTestData(t *testing.T) (*memory.InterestRunStore, *memory.DealRecordStore) {
	ctx := context.Background()

	runStore := memory.NewInterestRunStore()
	dealStore := memory.NewDealRecordStore()

	runs := []*domain.InterestRun{
		{
			Window: domain.Window{
				Ticker: "BTC", Start: 1480530600, End: 1480534200,
				Observations: []*domain.RateObservation{
					{Ticker: "BTC", Timestamp: 1480530600, Rate: 0.01},
					{Ticker: "BTC", Timestamp: 1480534200, Rate: 0.02},
				},
			},
			ID:           "run-growing",
			TargetTicker: "XMR",
			InterestEntries: []*domain.PriceObservation{
				{Ticker: "XMR", Timestamp: 1480530600, ClosePrice: 0.010, Volume: 5},
				{Ticker: "XMR", Timestamp: 1480534200, ClosePrice: 0.011, Volume: 7},
			},
			Slope:   2.7e-6,
			Growing: true,
			Aligned: true,
		},
		{
			Window: domain.Window{
				Ticker: "BTC", Start: 1480600000, End: 1480603600,
				Observations: []*domain.RateObservation{
					{Ticker: "BTC", Timestamp: 1480600000, Rate: 0.03},
					{Ticker: "BTC", Timestamp: 1480603600, Rate: 0.02},
				},
			},
			ID:           "run-flat",
			TargetTicker: "XMR",
			Slope:        -2.7e-6,
			Aligned:      true,
		},
	}
	if err := runStore.InsertBulk(ctx, runs); err != nil {
		t.Fatalf("Insert runs failed: %v", err)
	}

	deals := []*domain.DealRecord{
		{
			DealID: "d1", RunID: "run-growing", StrategyID: "ENTER_AT_START:CLOSE_ON_BELOW_AVERAGE",
			Ticker: "BTC", Target: "XMR",
			EntryTime: 1480530600, EntryPrice: 0.010, ExitTime: 1480534200, ExitPrice: 0.011,
			ExitReason: domain.ExitReasonRunEnd, Outcome: 0.1, OutcomeClass: domain.OutcomeClassWin, Growing: true,
		},
	}
	if err := dealStore.InsertBulk(ctx, deals); err != nil {
		t.Fatalf("Insert deals failed: %v", err)
	}

	return runStore, dealStore
}

func fixedClock() time.Time {
	return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
}

func TestGenerator_Generate(t *testing.T) {
	runStore, dealStore := setupTestData(t)

	report, err := NewGenerator(runStore, dealStore).WithClock(fixedClock).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixedClock())
	}
	if report.Summary.TotalRuns != 2 || report.Summary.GrowingRuns != 1 || report.Summary.NonGrowingRuns != 1 {
		t.Errorf("unexpected summary: %+v", report.Summary)
	}
	if report.Summary.TotalDeals != 1 {
		t.Errorf("TotalDeals = %d, want 1", report.Summary.TotalDeals)
	}
	if report.Summary.DateRangeStart != 1480530600 || report.Summary.DateRangeEnd != 1480603600 {
		t.Errorf("unexpected date range: %d..%d", report.Summary.DateRangeStart, report.Summary.DateRangeEnd)
	}

	if len(report.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(report.Pairs))
	}
	p := report.Pairs[0]
	if p.LendingTicker != "BTC" || p.TargetTicker != "XMR" {
		t.Errorf("unexpected pair %s/%s", p.LendingTicker, p.TargetTicker)
	}
	if len(p.Growing) != 1 || len(p.NonGrowing) != 1 {
		t.Fatalf("expected 1 growing and 1 non-growing row, got %d and %d", len(p.Growing), len(p.NonGrowing))
	}
	if p.Growing[0].Deals != 1 {
		t.Errorf("growing run deals = %d, want 1", p.Growing[0].Deals)
	}
	if p.Stats == nil || p.Stats.TotalRuns != 2 {
		t.Errorf("unexpected pair stats: %+v", p.Stats)
	}

	if len(report.DealMetrics) != 1 || report.DealMetrics[0].WinRate != 1 {
		t.Errorf("unexpected deal metrics: %+v", report.DealMetrics)
	}
	if len(report.Reproducibility.DataVersion) != 16 {
		t.Errorf("DataVersion = %q, want 16 hex chars", report.Reproducibility.DataVersion)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	runStore, dealStore := setupTestData(t)
	gen := NewGenerator(runStore, dealStore).WithClock(fixedClock)

	r1, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	r2, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if RenderMarkdown(r1) != RenderMarkdown(r2) {
		t.Error("markdown output is not deterministic")
	}
	if RenderRunsCSV(r1.Runs) != RenderRunsCSV(r2.Runs) {
		t.Error("runs CSV output is not deterministic")
	}
}

func TestGenerator_Empty(t *testing.T) {
	report, err := NewGenerator(memory.NewInterestRunStore(), memory.NewDealRecordStore()).
		WithClock(fixedClock).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.Summary.TotalRuns != 0 || len(report.Pairs) != 0 {
		t.Errorf("expected empty report, got %+v", report.Summary)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "No interest runs found.") {
		t.Error("expected empty-runs notice in markdown")
	}
	if !strings.Contains(md, "No deals evaluated.") {
		t.Error("expected empty-deals notice in markdown")
	}
}

func TestRenderMarkdown(t *testing.T) {
	runStore, dealStore := setupTestData(t)
	report, err := NewGenerator(runStore, dealStore).WithClock(fixedClock).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	report.DataQuality = DataQualitySection{
		SufficiencyChecks: []SufficiencyCheckRow{{Name: "BTC lending observations", Threshold: ">= 10", Actual: "4", Pass: false}},
		IntegrityErrors:   []string{"ETH/XMR: no rate observations"},
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Interest Run Report",
		"Generated: 2025-01-15T12:00:00Z",
		"## BTC / XMR",
		"### Growing interest runs",
		"### Non-growing interest runs",
		"2016-11-30 18:30:00",
		"ENTER_AT_START:CLOSE_ON_BELOW_AVERAGE",
		"| BTC lending observations | >= 10 | 4 | FAIL |",
		"- ETH/XMR: no rate observations",
		"Generator version: " + GeneratorVersion,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSVs(t *testing.T) {
	runStore, dealStore := setupTestData(t)
	report, err := NewGenerator(runStore, dealStore).WithClock(fixedClock).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	runs := strings.Split(strings.TrimSpace(RenderRunsCSV(report.Runs)), "\n")
	if len(runs) != 3 {
		t.Fatalf("runs CSV: expected header + 2 rows, got %d lines", len(runs))
	}
	if !strings.HasPrefix(runs[0], "run_id,lending_ticker,target_ticker,") {
		t.Errorf("unexpected runs header: %s", runs[0])
	}
	if got := len(strings.Split(runs[1], ",")); got != 13 {
		t.Errorf("runs CSV: expected 13 columns, got %d", got)
	}

	entries := strings.Split(strings.TrimSpace(RenderEntriesCSV(report.Runs)), "\n")
	if len(entries) != 3 {
		t.Errorf("entries CSV: expected header + 2 rows, got %d lines", len(entries))
	}

	deals := strings.Split(strings.TrimSpace(RenderDealsCSV(report.Deals)), "\n")
	if len(deals) != 2 {
		t.Fatalf("deals CSV: expected header + 1 row, got %d lines", len(deals))
	}
	if !strings.HasPrefix(deals[1], "d1,run-growing,") {
		t.Errorf("unexpected deal row: %s", deals[1])
	}
}

func TestWriteFiles(t *testing.T) {
	runStore, dealStore := setupTestData(t)
	report, err := NewGenerator(runStore, dealStore).WithClock(fixedClock).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	if err := WriteFiles(dir, report); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	for _, name := range []string{ReportFile, RunsFile, EntriesFile, DealsFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s not written: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(1480530600); got != "2016-11-30 18:30:00" {
		t.Errorf("FormatTimestamp = %q", got)
	}
	if got := FormatTimestamp(0); got != "-" {
		t.Errorf("FormatTimestamp(0) = %q, want -", got)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"2016-11-30", 1480464000},
		{"2016-11-30 18:30:00", 1480530600},
		{"2016-11-30T18:30:00Z", 1480530600},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDate(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := ParseDate("30/11/2016"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		sec  int64
		want string
	}{
		{0, "0m"},
		{900, "15m"},
		{3600 + 1800, "1h 30m"},
		{2*86400 + 3*3600 + 15*60, "2d 3h 15m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.sec); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}
