// Package pipeline runs analysis and report generation end to end.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/observability"
	"lending-interest-lab/internal/orchestrator"
	"lending-interest-lab/internal/reporting"
)

// Pipeline orchestrates sufficiency checks, analysis and report output.
type Pipeline struct {
	orch               *orchestrator.Orchestrator
	reportGen          *reporting.Generator
	sufficiencyChecker *SufficiencyChecker
	pairs              []domain.Pair
	outputDir          string
	clock              func() time.Time
	metrics            *observability.Metrics
	logger             zerolog.Logger
}

// New creates a new pipeline. pairs are the pairs the orchestrator analyses,
// used for the sufficiency checks.
func New(orch *orchestrator.Orchestrator, reportGen *reporting.Generator, pairs []domain.Pair, outputDir string) *Pipeline {
	return &Pipeline{
		orch:      orch,
		reportGen: reportGen,
		pairs:     pairs,
		outputDir: outputDir,
		clock:     func() time.Time { return time.Now().UTC() },
		logger:    zerolog.Nop(),
	}
}

// WithSufficiencyChecker adds a sufficiency checker to the pipeline.
func (p *Pipeline) WithSufficiencyChecker(c *SufficiencyChecker) *Pipeline {
	p.sufficiencyChecker = c
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithMetrics records report generation.
func (p *Pipeline) WithMetrics(m *observability.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// WithLogger sets the pipeline logger.
func (p *Pipeline) WithLogger(l zerolog.Logger) *Pipeline {
	p.logger = l
	return p
}

// Run executes the full pipeline and writes the report files to the output dir.
// Failed sufficiency checks do not stop the analysis; they are reported in
// the data quality section together with pair errors and warnings.
func (p *Pipeline) Run(ctx context.Context) (*reporting.Report, *orchestrator.RunResult, error) {
	started := p.clock()

	// 1. Run sufficiency check FIRST (if configured)
	dataQuality := reporting.DataQualitySection{AllChecksPassed: true}
	if p.sufficiencyChecker != nil {
		suff, err := p.sufficiencyChecker.Check(ctx, p.pairs)
		if err != nil {
			return nil, nil, fmt.Errorf("sufficiency check: %w", err)
		}
		dataQuality = convertToDataQuality(suff)
		if !suff.AllPass {
			p.logger.Warn().Msg("some data sufficiency checks failed")
		}
	}

	// 2. Analyse pairs and persist runs and deals
	result, err := p.orch.Run(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze: %w", err)
	}

	// Pair errors and run warnings are integrity errors
	integrity := append([]string{}, result.Errors...)
	for _, pr := range result.Pairs {
		for _, w := range pr.Warnings {
			integrity = append(integrity, fmt.Sprintf("%s: %s", pr.Pair, w))
		}
	}
	if len(integrity) > 0 {
		dataQuality.IntegrityErrors = append(dataQuality.IntegrityErrors, integrity...)
		dataQuality.AllChecksPassed = false
	}

	// 3. Generate report over everything stored
	report, err := p.reportGen.Generate(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("generate report: %w", err)
	}
	report.DataQuality = dataQuality

	// 4. Write files
	if err := reporting.WriteFiles(p.outputDir, report); err != nil {
		return nil, nil, err
	}

	finished := p.clock()
	p.metrics.RecordReport()
	p.metrics.RecordPipelineRun("report", finished.Sub(started).Seconds(), finished.Unix())
	p.logger.Info().
		Str("dir", p.outputDir).
		Int("runs", report.Summary.TotalRuns).
		Int("deals", report.Summary.TotalDeals).
		Msg("report written")

	return report, result, nil
}

// convertToDataQuality converts SufficiencyResult to reporting.DataQualitySection.
func convertToDataQuality(result *SufficiencyResult) reporting.DataQualitySection {
	rows := make([]reporting.SufficiencyCheckRow, len(result.Checks))
	for i, c := range result.Checks {
		rows[i] = reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return reporting.DataQualitySection{
		SufficiencyChecks: rows,
		AllChecksPassed:   result.AllPass,
	}
}
