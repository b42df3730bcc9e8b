// Package metrics exposes Prometheus collectors for audits, page retrieval
// and the HTTP API. A nil *Metrics is valid and records nothing, which is
// how metrics are disabled.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rmn-raj/seo-tool/audit"
)

// Metrics holds every collector the service records to.
type Metrics struct {
	auditsTotal   *prometheus.CounterVec
	auditDuration prometheus.Histogram
	auditScore    prometheus.Histogram
	signalTiers   *prometheus.CounterVec

	fetchAttempts *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	activePages  prometheus.Gauge

	handler http.Handler
}

// New registers collectors on the default registry.
func New(namespace string) *Metrics {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewWithRegistry registers collectors on registerer. If registerer is also
// a Gatherer, Handler serves it; otherwise the default gatherer is served.
func NewWithRegistry(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{}

	m.auditsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audits_total",
		Help:      "Total audits by outcome",
	}, []string{"status"}) // status: success, error

	m.auditDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_duration_seconds",
		Help:      "End-to-end audit time including retrieval",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.auditScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_score",
		Help:      "Distribution of overall audit scores",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	m.signalTiers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signal_tier_total",
		Help:      "Signal classifications by signal and tier",
	}, []string{"signal", "tier"})

	m.fetchAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fetch",
		Name:      "attempts_total",
		Help:      "Retrieval attempts by engine and outcome",
	}, []string{"engine", "outcome"}) // outcome: success, error

	m.fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Retrieval time per engine attempt",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"engine"})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route and status",
	}, []string{"route", "status"})

	m.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Failed audits by error code",
	}, []string{"code"})

	m.activePages = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "browser",
		Name:      "active_pages",
		Help:      "Browser tabs currently rendering a page",
	})

	registerer.MustRegister(
		m.auditsTotal,
		m.auditDuration,
		m.auditScore,
		m.signalTiers,
		m.fetchAttempts,
		m.fetchDuration,
		m.httpRequests,
		m.errorsTotal,
		m.activePages,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	m.handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return m
}

// RecordAudit records a completed audit.
func (m *Metrics) RecordAudit(r *audit.Report, elapsed time.Duration) {
	if m == nil || r == nil {
		return
	}
	m.auditsTotal.WithLabelValues("success").Inc()
	m.auditDuration.Observe(elapsed.Seconds())
	m.auditScore.Observe(float64(r.Score))
	for _, s := range r.Signals() {
		m.signalTiers.WithLabelValues(s.Name, string(s.Result.Status)).Inc()
	}
}

// RecordFailure records an audit that could not be performed.
func (m *Metrics) RecordFailure(code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.auditsTotal.WithLabelValues("error").Inc()
	m.auditDuration.Observe(elapsed.Seconds())
	m.errorsTotal.WithLabelValues(code).Inc()
}

// ObserveFetch implements engine.Observer.
func (m *Metrics) ObserveFetch(engineName string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.fetchAttempts.WithLabelValues(engineName, outcome).Inc()
	m.fetchDuration.WithLabelValues(engineName).Observe(elapsed.Seconds())
}

// RecordHTTPRequest counts an API request.
func (m *Metrics) RecordHTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// SetActivePages updates the browser tab gauge.
func (m *Metrics) SetActivePages(n int) {
	if m == nil {
		return
	}
	m.activePages.Set(float64(n))
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}
