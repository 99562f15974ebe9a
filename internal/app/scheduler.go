package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"lending-interest-lab/internal/api"
)

// Cycle is one scheduled ingest and analyze pass.
type Cycle func(ctx context.Context) error

// Scheduler runs a Cycle on a cron schedule and reports its state.
// A tick that fires while a cycle is still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	entry  cron.EntryID
	ctx    context.Context
	cycle  Cycle
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	status api.Status
}

// NewScheduler registers cycle under schedule (standard five-field cron or a
// descriptor such as "@every 1h"). Cycles run with ctx.
func NewScheduler(ctx context.Context, schedule string, cycle Cycle, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		ctx:    ctx,
		cycle:  cycle,
		logger: logger,
		now:    time.Now,
	}
	s.status.StartedAt = s.now().UTC()

	id, err := s.cron.AddFunc(schedule, s.RunNow)
	if err != nil {
		return nil, fmt.Errorf("register cycle %q: %w", schedule, err)
	}
	s.entry = id
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Time("next", s.cron.Entry(s.entry).Next).Msg("scheduler started")
}

// Stop stops scheduling and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunNow executes one cycle unless another is in progress.
func (s *Scheduler) RunNow() {
	s.mu.Lock()
	if s.status.CycleRunning {
		s.mu.Unlock()
		s.logger.Warn().Msg("cycle already running, skipping")
		return
	}
	s.status.CycleRunning = true
	s.mu.Unlock()

	start := s.now()
	err := s.cycle(s.ctx)

	s.mu.Lock()
	s.status.CycleRunning = false
	s.status.Cycles++
	s.status.LastCycle = start.UTC()
	s.status.LastCycleErr = ""
	if err != nil {
		s.status.LastCycleErr = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Dur("took", s.now().Sub(start)).Msg("cycle failed")
		return
	}
	s.logger.Info().Dur("took", s.now().Sub(start)).Msg("cycle completed")
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() api.Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
		st.NextScheduled = next.UTC()
	}
	return st
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
