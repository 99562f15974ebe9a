package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Interest Run Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Pairs | %d |\n", r.Summary.TotalPairs))
	sb.WriteString(fmt.Sprintf("| Interest Runs | %d |\n", r.Summary.TotalRuns))
	sb.WriteString(fmt.Sprintf("| Growing Runs | %d |\n", r.Summary.GrowingRuns))
	sb.WriteString(fmt.Sprintf("| Non-growing Runs | %d |\n", r.Summary.NonGrowingRuns))
	sb.WriteString(fmt.Sprintf("| Deals | %d |\n", r.Summary.TotalDeals))
	sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", FormatTimestamp(r.Summary.DateRangeStart)))
	sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", FormatTimestamp(r.Summary.DateRangeEnd)))
	sb.WriteString("\n")

	renderDataQuality(&sb, r.DataQuality)

	// Pairs
	if len(r.Pairs) == 0 {
		sb.WriteString("## Interest Runs\n\nNo interest runs found.\n\n")
	}
	for _, p := range r.Pairs {
		renderPair(&sb, p)
	}

	// Deal Metrics
	sb.WriteString("## Deal Metrics\n\n")
	if len(r.DealMetrics) > 0 {
		sb.WriteString("| Strategy | Deals | Wins | WinRate | Growing WinRate | Non-growing WinRate | Mean | Median | P10 | P90 | MaxDD | MaxLoss |\n")
		sb.WriteString("|----------|-------|------|---------|-----------------|---------------------|------|--------|-----|-----|-------|---------|\n")
		for _, m := range r.DealMetrics {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %d |\n",
				m.StrategyID, m.TotalDeals, m.Wins, m.WinRate, m.GrowingWinRate, m.NonGrowingWinRate,
				m.OutcomeMean, m.OutcomeMedian, m.OutcomeP10, m.OutcomeP90,
				m.MaxDrawdown, m.MaxConsecutiveLosses))
		}
	} else {
		sb.WriteString("No deals evaluated.\n")
	}
	sb.WriteString("\n")

	// Reproducibility
	sb.WriteString("## Reproducibility\n\n")
	sb.WriteString(fmt.Sprintf("- Generator version: %s\n", r.Reproducibility.GeneratorVersion))
	sb.WriteString(fmt.Sprintf("- Data version: %s\n", r.Reproducibility.DataVersion))

	return sb.String()
}

func renderDataQuality(sb *strings.Builder, dq DataQualitySection) {
	if len(dq.SufficiencyChecks) == 0 && len(dq.IntegrityErrors) == 0 {
		return
	}
	sb.WriteString("## Data Quality\n\n")
	if len(dq.SufficiencyChecks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range dq.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")
		if dq.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Results below may rest on insufficient data.\n\n")
		}
	}
	if len(dq.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range dq.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}
}

func renderPair(sb *strings.Builder, p PairSection) {
	target := p.TargetTicker
	if target == "" {
		target = "-"
	}
	sb.WriteString(fmt.Sprintf("## %s / %s\n\n", p.LendingTicker, target))

	if s := p.Stats; s != nil {
		sb.WriteString(fmt.Sprintf("Runs: %d (growing %d, non-growing %d, growing share %.2f). ",
			s.TotalRuns, s.GrowingRuns, s.NonGrowingRuns, s.GrowingShare))
		sb.WriteString(fmt.Sprintf("Mean entries %.1f, median %.1f, mean duration %s.\n\n",
			s.MeanEntries, s.MedianEntries, FormatDuration(int64(s.MeanDurationSec))))
		if p.TargetTicker != "" {
			sb.WriteString(fmt.Sprintf("Mean %s price change: growing %+.2f%%, non-growing %+.2f%%.\n\n",
				p.TargetTicker, 100*s.MeanPriceChangeGrowing, 100*s.MeanPriceChangeNonGrowing))
		}
	}

	renderRunTable(sb, "Growing interest runs", p.Growing)
	renderRunTable(sb, "Non-growing interest runs", p.NonGrowing)
}

func renderRunTable(sb *strings.Builder, title string, rows []RunRow) {
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	if len(rows) == 0 {
		sb.WriteString("None.\n\n")
		return
	}
	sb.WriteString("| Start | End | Duration | Lending Entries | Interest Entries | Rate Change | Slope | Price Change | Deals |\n")
	sb.WriteString("|-------|-----|----------|-----------------|------------------|-------------|-------|--------------|-------|\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %+.6f | %.3e | %+.2f%% | %d |\n",
			FormatTimestamp(r.Start), FormatTimestamp(r.End), FormatDuration(r.End-r.Start),
			r.Observations, r.Entries, r.RateChange, r.Slope, 100*r.PriceChangePct, r.Deals))
	}
	sb.WriteString("\n")
}
