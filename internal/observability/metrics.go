// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "lending_interest_lab"

// Metrics holds all Prometheus metrics for the application.
// All Record methods are safe on a nil *Metrics, so components can run without metrics.
type Metrics struct {
	// Ingestion metrics
	ObservationsFetched *prometheus.CounterVec
	ObservationsStored  *prometheus.CounterVec
	IngestionErrors     *prometheus.CounterVec
	LiveBufferSize      prometheus.Gauge
	HTTPCallLatency     *prometheus.HistogramVec
	StreamMessages      *prometheus.CounterVec

	// Analysis metrics
	PairsAnalyzed    *prometheus.CounterVec
	RunsFound        *prometheus.CounterVec
	DealsEvaluated   *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec
	ReportsGenerated prometheus.Counter

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates metrics registered on reg. A nil reg uses a fresh
// registry, which keeps tests and repeated constructions independent.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		ObservationsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_fetched_total",
			Help:      "Observations returned by sources, by feed",
		}, []string{"feed"}),
		ObservationsStored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_stored_total",
			Help:      "Observations written to storage, by feed",
		}, []string{"feed"}),
		IngestionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Ingestion errors by feed and type",
		}, []string{"feed", "error_type"}),
		LiveBufferSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "live_buffer_size",
			Help:      "Observations buffered by the live collector",
		}),
		HTTPCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bitfinex",
			Name:      "http_call_latency_seconds",
			Help:      "Bitfinex REST call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		StreamMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bitfinex",
			Name:      "stream_messages_total",
			Help:      "Websocket messages received, by kind",
		}, []string{"kind"}),

		PairsAnalyzed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "pairs_analyzed_total",
			Help:      "Pairs analyzed, by status",
		}, []string{"status"}),
		RunsFound: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "interest_runs_total",
			Help:      "Interest runs found, by classification",
		}, []string{"class"}),
		DealsEvaluated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "deals_evaluated_total",
			Help:      "Deals evaluated, by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"phase"}),
		ReportsGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		LastSuccessfulIngestion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulPipeline: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),

		gatherer: reg,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordFetched counts observations returned by a source.
func (m *Metrics) RecordFetched(feed string, n int) {
	if m == nil {
		return
	}
	m.ObservationsFetched.WithLabelValues(feed).Add(float64(n))
}

// RecordStored counts observations written to storage and marks ingestion healthy.
func (m *Metrics) RecordStored(feed string, n int, unix int64) {
	if m == nil {
		return
	}
	m.ObservationsStored.WithLabelValues(feed).Add(float64(n))
	m.LastSuccessfulIngestion.Set(float64(unix))
}

// RecordIngestionError records an ingestion error.
func (m *Metrics) RecordIngestionError(feed, errorType string) {
	if m == nil {
		return
	}
	m.IngestionErrors.WithLabelValues(feed, errorType).Inc()
}

// SetLiveBuffer updates the live collector buffer gauge.
func (m *Metrics) SetLiveBuffer(n int) {
	if m == nil {
		return
	}
	m.LiveBufferSize.Set(float64(n))
}

// RecordHTTPLatency records a REST call latency.
func (m *Metrics) RecordHTTPLatency(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPCallLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordStreamMessage counts a websocket message of the given kind.
func (m *Metrics) RecordStreamMessage(kind string) {
	if m == nil {
		return
	}
	m.StreamMessages.WithLabelValues(kind).Inc()
}

// RecordPair records the analysis of one pair.
func (m *Metrics) RecordPair(status string, growing, nonGrowing int) {
	if m == nil {
		return
	}
	m.PairsAnalyzed.WithLabelValues(status).Inc()
	m.RunsFound.WithLabelValues("growing").Add(float64(growing))
	m.RunsFound.WithLabelValues("non_growing").Add(float64(nonGrowing))
}

// RecordDeal counts one evaluated deal.
func (m *Metrics) RecordDeal(strategyID, outcomeClass string) {
	if m == nil {
		return
	}
	m.DealsEvaluated.WithLabelValues(strategyID, outcomeClass).Inc()
}

// RecordPipelineRun records a pipeline phase duration and marks success.
func (m *Metrics) RecordPipelineRun(phase string, durationSeconds float64, unix int64) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
	m.LastSuccessfulPipeline.Set(float64(unix))
}

// RecordReport counts a generated report.
func (m *Metrics) RecordReport() {
	if m == nil {
		return
	}
	m.ReportsGenerated.Inc()
}
