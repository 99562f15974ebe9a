package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Output file names written by WriteFiles.
const (
	ReportFile  = "INTEREST_REPORT.md"
	RunsFile    = "interest_runs.csv"
	EntriesFile = "interest_entries.csv"
	DealsFile   = "deal_records.csv"
)

// WriteFiles renders r into dir, creating it if needed:
//   - INTEREST_REPORT.md
//   - interest_runs.csv
//   - interest_entries.csv
//   - deal_records.csv
func WriteFiles(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{ReportFile, RenderMarkdown(r)},
		{RunsFile, RenderRunsCSV(r.Runs)},
		{EntriesFile, RenderEntriesCSV(r.Runs)},
		{DealsFile, RenderDealsCSV(r.Deals)},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), []byte(f.content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

const dateLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders Unix seconds as a UTC date-time, or "-" for zero.
func FormatTimestamp(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format(dateLayout)
}

// ParseDate parses "2006-01-02" or "2006-01-02 15:04:05" (UTC) into Unix seconds.
func ParseDate(s string) (int64, error) {
	for _, layout := range []string{dateLayout, "2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised date %q", s)
}

// FormatDuration renders seconds as e.g. "2d 3h 15m".
func FormatDuration(sec int64) string {
	if sec <= 0 {
		return "0m"
	}
	d := sec / 86400
	h := (sec % 86400) / 3600
	m := (sec % 3600) / 60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
