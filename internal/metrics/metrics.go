// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taskmanager"

// Metrics owns its registry so several instances can coexist in tests.
// All recording methods are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	logins        *prometheus.CounterVec
	verifications *prometheus.CounterVec
	rlRequests    *prometheus.CounterVec
	rlBlocked     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_verifications_total",
			Help:      "Email verification attempts by outcome",
		}, []string{"outcome"}),
		rlRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limiter_requests_total",
			Help:      "Total requests seen by the rate limiter",
		}, []string{"endpoint"}),
		rlBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limiter_blocked_total",
			Help:      "Total requests blocked by the rate limiter",
		}, []string{"endpoint"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.logins,
		m.verifications,
		m.rlRequests,
		m.rlBlocked,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Login outcomes: success, invalid, unverified, error.
func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// Verification outcomes: verified, already_verified, invalid.
func (m *Metrics) Verification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RateLimitAllowed(endpoint string) {
	if m == nil {
		return
	}
	m.rlRequests.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) RateLimitBlocked(endpoint string) {
	if m == nil {
		return
	}
	m.rlBlocked.WithLabelValues(endpoint).Inc()
}
