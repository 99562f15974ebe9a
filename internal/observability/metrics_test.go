package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordFetched("lends", 5)
	m.RecordStored("lends", 4, 1700000000)
	m.RecordPair("ok", 2, 3)
	m.RecordDeal("S", "WIN")

	assert.Equal(t, 5.0, testutil.ToFloat64(m.ObservationsFetched.WithLabelValues("lends")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ObservationsStored.WithLabelValues("lends")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastSuccessfulIngestion))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsFound.WithLabelValues("growing")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RunsFound.WithLabelValues("non_growing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DealsEvaluated.WithLabelValues("S", "WIN")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordFetched("lends", 1)
	m.RecordIngestionError("lends", "fetch")
	m.SetLiveBuffer(3)
	m.RecordPipelineRun("analyze", 1, 1)
	m.RecordReport()
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("", nil)
	m.RecordReport()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "lending_interest_lab_pipeline_reports_generated_total 1"))
}
