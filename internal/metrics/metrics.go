// Package metrics exposes Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Upload metrics
	UploadsTotal       *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	UploadBytes        prometheus.Histogram

	// Question metrics
	QuestionsTotal    *prometheus.CounterVec
	AgentCallsTotal   *prometheus.CounterVec
	AgentCallDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsSwept   prometheus.Counter

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labreport_uploads_total",
				Help: "Total number of report uploads by outcome",
			},
			[]string{"status"},
		),
		ExtractionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "labreport_extraction_duration_seconds",
				Help:    "Duration of PDF text extraction in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		UploadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "labreport_upload_bytes",
				Help:    "Size of uploaded PDF files in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),
		QuestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labreport_questions_total",
				Help: "Total number of questions asked by outcome",
			},
			[]string{"status"},
		),
		AgentCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labreport_agent_calls_total",
				Help: "Total number of agent calls by provider and outcome",
			},
			[]string{"provider", "status"},
		),
		AgentCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labreport_agent_call_duration_seconds",
				Help:    "Duration of agent calls in seconds by provider",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "labreport_sessions_active",
				Help: "Current active session count",
			},
		),
		SessionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "labreport_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "labreport_sessions_swept_total",
				Help: "Total number of sessions removed by expiry sweeps",
			},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labreport_http_requests_total",
				Help: "Total HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labreport_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(
		m.UploadsTotal,
		m.ExtractionDuration,
		m.UploadBytes,
		m.QuestionsTotal,
		m.AgentCallsTotal,
		m.AgentCallDuration,
		m.SessionsActive,
		m.SessionsCreated,
		m.SessionsSwept,
		m.RequestsTotal,
		m.RequestDuration,
	)

	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAgentCall records one agent call.
func (m *Metrics) ObserveAgentCall(provider string, d time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.AgentCallsTotal.WithLabelValues(provider, status).Inc()
	m.AgentCallDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, d time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
