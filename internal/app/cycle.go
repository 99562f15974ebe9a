package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lending-interest-lab/internal/config"
	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/ingestion"
	"lending-interest-lab/internal/pipeline"
)

// ResolvePairs fills open pair ranges: a missing start becomes
// now minus lookback and a missing end becomes now.
func ResolvePairs(pairs []domain.Pair, now time.Time, lookback time.Duration) []domain.Pair {
	out := make([]domain.Pair, len(pairs))
	for i, p := range pairs {
		if p.To == 0 {
			p.To = now.Unix()
		}
		if p.From == 0 {
			p.From = now.Add(-lookback).Unix()
		}
		out[i] = p
	}
	return out
}

// CycleDeps are the collaborators of an ingest and analyze cycle.
type CycleDeps struct {
	Config  *config.Config
	Manager *ingestion.Manager

	// NewPipeline builds the pipeline for the resolved pairs of one cycle.
	NewPipeline func(pairs []domain.Pair) *pipeline.Pipeline

	Logger zerolog.Logger
	Now    func() time.Time
}

// NewCycle returns a cycle that ingests every configured pair over its
// range, then runs the pipeline. Ingestion failures of single pairs are
// logged and the analysis still runs over what is stored; they are
// returned joined with any pipeline error.
func NewCycle(d CycleDeps) (Cycle, error) {
	pairs, err := d.Config.Pairs()
	if err != nil {
		return nil, err
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	lookback := time.Duration(d.Config.Server.LookbackDays) * 24 * time.Hour

	return func(ctx context.Context) error {
		resolved := ResolvePairs(pairs, d.Now(), lookback)

		var errs []error
		if d.Manager != nil {
			for _, p := range resolved {
				rates, prices, err := d.Manager.IngestPair(ctx, p)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					d.Logger.Error().Err(err).Str("pair", p.String()).Msg("ingestion failed")
					errs = append(errs, fmt.Errorf("ingest %s: %w", p, err))
					continue
				}
				d.Logger.Info().Str("pair", p.String()).Int("rates", rates).Int("prices", prices).Msg("pair ingested")
			}
		}

		report, result, err := d.NewPipeline(resolved).Run(ctx)
		if err != nil {
			errs = append(errs, err)
			return errors.Join(errs...)
		}
		d.Logger.Info().
			Int("runs_created", result.RunsCreated).
			Int("deals_created", result.DealsCreated).
			Int("total_runs", report.Summary.TotalRuns).
			Msg("analysis completed")
		return errors.Join(errs...)
	}, nil
}
