// Package metrics defines the Prometheus collectors exported by the outreach engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "outreach"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	trackingEvents  *prometheus.CounterVec
	trackingRejects *prometheus.CounterVec
	bounces         *prometheus.CounterVec
	pipelineRuns    *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	itemFallbacks   *prometheus.CounterVec
	sendsScheduled  prometheus.Counter
	sendsDispatched *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.trackingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_events_total",
			Help:      "Recorded engagement events",
		},
		[]string{"type", "first"},
	)
	m.trackingRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_rejected_total",
			Help:      "Tracking requests not recorded because of a bad signature or unknown tracking ID",
		},
		[]string{"type", "reason"},
	)
	m.bounces = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bounces_total",
			Help:      "Processed bounce reports by classification",
		},
		[]string{"bounce_type", "category"},
	)
	m.pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Finished pipeline runs by outcome",
		},
		[]string{"status"},
	)
	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)
	m.itemFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_item_fallbacks_total",
			Help:      "Per-item failures replaced by a deterministic fallback",
		},
		[]string{"stage"},
	)
	m.sendsScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_scheduled_total",
			Help:      "Schedule entries produced",
		},
	)
	m.sendsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_dispatched_total",
			Help:      "Scheduled sends handed to the mail transport",
		},
		[]string{"status"},
	)
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	m.registry.MustRegister(
		m.trackingEvents,
		m.trackingRejects,
		m.bounces,
		m.pipelineRuns,
		m.stageDuration,
		m.itemFallbacks,
		m.sendsScheduled,
		m.sendsDispatched,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) TrackingEvent(eventType string, first bool) {
	if m == nil {
		return
	}
	m.trackingEvents.WithLabelValues(eventType, strconv.FormatBool(first)).Inc()
}

func (m *Metrics) TrackingRejected(eventType, reason string) {
	if m == nil {
		return
	}
	m.trackingRejects.WithLabelValues(eventType, reason).Inc()
}

func (m *Metrics) Bounce(bounceType, category string) {
	if m == nil {
		return
	}
	m.bounces.WithLabelValues(bounceType, category).Inc()
}

func (m *Metrics) PipelineRun(status string) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) StageDuration(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ItemFallback(stage string) {
	if m == nil {
		return
	}
	m.itemFallbacks.WithLabelValues(stage).Inc()
}

func (m *Metrics) SendsScheduled(n int) {
	if m == nil {
		return
	}
	m.sendsScheduled.Add(float64(n))
}

func (m *Metrics) SendDispatched(status string) {
	if m == nil {
		return
	}
	m.sendsDispatched.WithLabelValues(status).Inc()
}

// HTTPRequest records one served request
func (m *Metrics) HTTPRequest(method, endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}
