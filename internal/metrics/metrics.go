// Package metrics exposes Prometheus collectors for the auth service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AuthMetrics = (*Metrics)(nil)

// Metrics holds the service collectors.
type Metrics struct {
	AuthTotal        *prometheus.CounterVec
	SweepsTotal      *prometheus.CounterVec
	SessionsSwept    prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	RateLimitedTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates and registers the service metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parranda_auth_operations_total",
				Help: "Auth operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		SweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parranda_session_sweeps_total",
				Help: "Session sweep cycles by outcome",
			},
			[]string{"outcome"},
		),
		SessionsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "parranda_sessions_swept_total",
				Help: "Expired sessions removed by the sweeper",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parranda_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parranda_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "parranda_http_rate_limited_total",
				Help: "Requests rejected by the login rate limiter",
			},
		),
	}

	reg.MustRegister(
		m.AuthTotal,
		m.SweepsTotal,
		m.SessionsSwept,
		m.HTTPRequests,
		m.HTTPDuration,
		m.RateLimitedTotal,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors
// already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// RecordAuth counts one auth operation.
func (m *Metrics) RecordAuth(operation, outcome string) {
	m.AuthTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordSweep counts one sweep cycle.
func (m *Metrics) RecordSweep(removed int64, err error) {
	if err != nil {
		m.SweepsTotal.WithLabelValues(driven.OutcomeError).Inc()
		return
	}
	m.SweepsTotal.WithLabelValues(driven.OutcomeSuccess).Inc()
	m.SessionsSwept.Add(float64(removed))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordRateLimited counts one rejected request.
func (m *Metrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}

// Handler serves the registry the metrics were registered on, falling back
// to the default gatherer.
func (m *Metrics) Handler() http.Handler {
	g := m.gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
