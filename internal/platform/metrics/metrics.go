package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tool call and search outcomes used as label values.
const (
	OutcomeFound    = "found"
	OutcomeEmpty    = "empty"
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics holds Prometheus counters and gauges for the tutor service.
type Metrics struct {
	registry       *prometheus.Registry
	requestsTotal  prometheus.Counter
	errorsTotal    prometheus.Counter
	searchesTotal  *prometheus.CounterVec
	toolCallsTotal *prometheus.CounterVec
	activeSessions prometheus.Gauge
	catalogVideos  prometheus.Gauge
}

// New creates and registers Prometheus metrics for the tutor service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tutor_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tutor_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	searchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_searches_total",
		Help: "Total number of video searches by outcome (found, empty)",
	}, []string{"outcome"})
	toolCallsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_tool_calls_total",
		Help: "Total number of assistant tool calls by tool and outcome",
	}, []string{"tool", "outcome"})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tutor_active_sessions",
		Help: "Number of open tutoring sessions",
	})
	catalogVideos := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tutor_catalog_videos",
		Help: "Number of videos in the loaded catalog",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		searchesTotal,
		toolCallsTotal,
		activeSessions,
		catalogVideos,
	)

	return &Metrics{
		registry:       registry,
		requestsTotal:  requestsTotal,
		errorsTotal:    errorsTotal,
		searchesTotal:  searchesTotal,
		toolCallsTotal: toolCallsTotal,
		activeSessions: activeSessions,
		catalogVideos:  catalogVideos,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveSearch records one search; found reports whether any video matched.
func (m *Metrics) ObserveSearch(found bool) {
	outcome := OutcomeEmpty
	if found {
		outcome = OutcomeFound
	}
	m.searchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveToolCall records one tool call with the given outcome.
func (m *Metrics) ObserveToolCall(tool, outcome string) {
	m.toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// SetCatalogVideos sets the catalog size gauge.
func (m *Metrics) SetCatalogVideos(n int) {
	m.catalogVideos.Set(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
