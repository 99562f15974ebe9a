package reporting

import (
	"fmt"
	"strings"

	"lending-interest-lab/internal/domain"
)

// RenderRunsCSV renders interest runs as CSV string, one row per run.
func RenderRunsCSV(runs []*domain.InterestRun) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,lending_ticker,target_ticker,start,end,start_date,end_date,")
	sb.WriteString("lending_entries,interest_entries,rate_change,slope,growing,price_change_pct\n")

	// Rows
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%s,%s,%d,%d,%.8f,%.8e,%t,%.6f\n",
			r.ID,
			r.Ticker,
			r.TargetTicker,
			r.Start,
			r.End,
			FormatTimestamp(r.Start),
			FormatTimestamp(r.End),
			len(r.Observations),
			len(r.InterestEntries),
			r.RateChange(),
			r.Slope,
			r.Growing,
			r.PriceChangePct(),
		))
	}

	return sb.String()
}

// RenderEntriesCSV renders the interest entries of every run, in run order.
func RenderEntriesCSV(runs []*domain.InterestRun) string {
	var sb strings.Builder

	sb.WriteString("run_id,target_ticker,timestamp,date,close_price,volume\n")
	for _, r := range runs {
		for _, e := range r.InterestEntries {
			sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%.8f,%.8f\n",
				r.ID, e.Ticker, e.Timestamp, FormatTimestamp(e.Timestamp), e.ClosePrice, e.Volume))
		}
	}

	return sb.String()
}

// RenderDealsCSV renders deal records as CSV string.
func RenderDealsCSV(deals []*domain.DealRecord) string {
	var sb strings.Builder

	sb.WriteString("deal_id,run_id,strategy_id,lending_ticker,target_ticker,")
	sb.WriteString("entry_time,entry_price,exit_time,exit_price,exit_reason,outcome,outcome_class,growing\n")
	for _, d := range deals {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%d,%.8f,%d,%.8f,%s,%.6f,%s,%t\n",
			d.DealID,
			d.RunID,
			d.StrategyID,
			d.Ticker,
			d.Target,
			d.EntryTime,
			d.EntryPrice,
			d.ExitTime,
			d.ExitPrice,
			d.ExitReason,
			d.Outcome,
			d.OutcomeClass,
			d.Growing,
		))
	}

	return sb.String()
}
