package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/metrics"
	"lending-interest-lab/internal/reporting"
	"lending-interest-lab/internal/storage"
)

// RunsRequest filters GET /api/v1/runs.
type RunsRequest struct {
	Ticker  string `query:"ticker" validate:"omitempty,alphanum,max=16"`
	Target  string `query:"target" validate:"omitempty,alphanum,max=16"`
	Growing string `query:"growing" validate:"omitempty,oneof=true false"`
	Limit   int    `query:"limit" default:"100" validate:"min=1,max=1000"`
}

// DealsRequest filters GET /api/v1/deals.
type DealsRequest struct {
	RunID string `query:"run_id" validate:"required,max=128"`
}

// StatsRequest filters GET /api/v1/stats.
type StatsRequest struct {
	Strategy string `query:"strategy" validate:"omitempty,max=128"`
}

// StatusProvider reports the state of background jobs.
type StatusProvider interface {
	Status() Status
}

// Status is the payload of GET /api/v1/status.
type Status struct {
	StartedAt     time.Time `json:"started_at"`
	LastCycle     time.Time `json:"last_cycle,omitzero"`
	LastCycleErr  string    `json:"last_cycle_error,omitempty"`
	Cycles        int       `json:"cycles"`
	CycleRunning  bool      `json:"cycle_running"`
	NextScheduled time.Time `json:"next_scheduled,omitzero"`
}

// Handler serves stored interest runs, deals and reports.
type Handler struct {
	runs   storage.InterestRunStore
	deals  storage.DealRecordStore
	status StatusProvider
	now    func() time.Time
	logger zerolog.Logger
}

// NewHandler creates a handler over the given stores. status may be nil.
func NewHandler(runs storage.InterestRunStore, deals storage.DealRecordStore, status StatusProvider, logger zerolog.Logger) *Handler {
	return &Handler{
		runs:   runs,
		deals:  deals,
		status: status,
		now:    time.Now,
		logger: logger,
	}
}

// RegisterRoutes mounts the v1 routes on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/runs", h.ListRuns)
	g.GET("/runs/:id", h.GetRun)
	g.GET("/deals", h.ListDeals)
	g.GET("/stats", h.Stats)
	g.GET("/report", h.Report)
	g.GET("/status", h.Status)
}

// ListRuns returns stored runs, optionally filtered by ticker, target and classification.
func (h *Handler) ListRuns(c echo.Context) error {
	req := &RunsRequest{}
	if verrs := bindQuery(c, req); verrs != nil {
		return badRequestResponse(c, verrs)
	}

	ctx := c.Request().Context()
	ticker := strings.ToUpper(req.Ticker)

	var stored []*domain.InterestRun
	var err error
	if ticker != "" {
		stored, err = h.runs.GetByTicker(ctx, ticker)
	} else {
		stored, err = h.runs.GetAll(ctx)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("list runs")
		return errorResponse(c, err)
	}

	runs := make([]RunView, 0, len(stored))
	for _, r := range stored {
		if keepRun(req, r.TargetTicker, r.Growing) {
			runs = append(runs, newRunView(r, false))
		}
	}

	total := len(runs)
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	return listResponse(c, runs, total)
}

func keepRun(req *RunsRequest, target string, growing bool) bool {
	if req.Target != "" && !strings.EqualFold(req.Target, target) {
		return false
	}
	switch req.Growing {
	case "true":
		return growing
	case "false":
		return !growing
	}
	return true
}

// GetRun returns one run with its observations and interest entries.
func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.runs.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if !isNotFound(err) {
			h.logger.Error().Err(err).Str("run_id", c.Param("id")).Msg("get run")
		}
		return errorResponse(c, err)
	}
	return successResponse(c, newRunView(run, true))
}

// ListDeals returns the deals evaluated over a run.
func (h *Handler) ListDeals(c echo.Context) error {
	req := &DealsRequest{}
	if verrs := bindQuery(c, req); verrs != nil {
		return badRequestResponse(c, verrs)
	}

	deals, err := h.deals.GetByRunID(c.Request().Context(), req.RunID)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", req.RunID).Msg("list deals")
		return errorResponse(c, err)
	}

	views := make([]DealView, len(deals))
	for i, d := range deals {
		views[i] = newDealView(d)
	}
	return listResponse(c, views, len(views))
}

// Stats returns deal statistics per strategy, or for one strategy when requested.
func (h *Handler) Stats(c echo.Context) error {
	req := &StatsRequest{}
	if verrs := bindQuery(c, req); verrs != nil {
		return badRequestResponse(c, verrs)
	}

	ctx := c.Request().Context()
	agg := metrics.NewAggregator(h.deals)

	if req.Strategy != "" {
		stats, err := agg.ComputeAggregate(ctx, req.Strategy)
		if errors.Is(err, metrics.ErrNoDeals) {
			return errorResponse(c, fmt.Errorf("%w: no deals for strategy %s", storage.ErrNotFound, req.Strategy))
		}
		if err != nil {
			h.logger.Error().Err(err).Str("strategy", req.Strategy).Msg("deal stats")
			return errorResponse(c, err)
		}
		return successResponse(c, newStatsView(stats))
	}

	all, err := agg.ComputeAll(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("deal stats")
		return errorResponse(c, err)
	}
	views := make([]StatsView, len(all))
	for i, s := range all {
		views[i] = newStatsView(s)
	}
	return listResponse(c, views, len(views))
}

// Report renders the markdown report over everything stored.
func (h *Handler) Report(c echo.Context) error {
	report, err := reporting.NewGenerator(h.runs, h.deals).WithClock(h.now).Generate(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("generate report")
		return errorResponse(c, err)
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(reporting.RenderMarkdown(report)))
}

// Status returns the scheduler state, or a zero Status when no scheduler runs.
func (h *Handler) Status(c echo.Context) error {
	if h.status == nil {
		return successResponse(c, Status{})
	}
	return successResponse(c, h.status.Status())
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
