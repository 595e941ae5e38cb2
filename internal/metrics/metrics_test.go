package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.TrackingEvent("open", true)
	m.TrackingEvent("open", false)
	m.TrackingEvent("open", false)
	m.Bounce("hard_bounce", "invalid_recipient")
	m.PipelineRun("completed")
	m.SendsScheduled(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.trackingEvents.WithLabelValues("open", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.trackingEvents.WithLabelValues("open", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bounces.WithLabelValues("hard_bounce", "invalid_recipient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sendsScheduled))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TrackingEvent("click", true)
		m.TrackingRejected("click", "signature")
		m.Bounce("soft_bounce", "unknown")
		m.PipelineRun("failed")
		m.StageDuration("essence", time.Second)
		m.ItemFallback("html")
		m.SendsScheduled(1)
		m.SendDispatched("sent")
		m.HTTPRequest("GET", "/health", 200, time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.HTTPRequest("GET", "/health", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "outreach_http_requests_total")
}
