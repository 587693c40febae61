// Package metrics provides Prometheus-based metrics collection for scanwell.
// It covers session orchestration, individual scan jobs, artifact parsing,
// database access, and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all scanwell metrics
	namespace = "scanwell"

	// Subsystems
	subsystemSession  = "session"
	subsystemJob      = "job"
	subsystemParse    = "parse"
	subsystemDatabase = "database"
	subsystemAPI      = "api"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Session metrics
	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	activeSessions  prometheus.Gauge

	// Job metrics
	jobsTotal   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	openPorts   prometheus.Counter

	// Artifact parsing metrics
	parseErrors prometheus.Counter

	// Database metrics
	dbQueries       *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	dbErrors        *prometheus.CounterVec

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{registry: registry}

	pm.sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSession,
			Name:      "total",
			Help:      "Total number of scan sessions by final status",
		},
		[]string{"status"},
	)

	pm.sessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemSession,
			Name:      "duration_seconds",
			Help:      "Duration of scan sessions in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	pm.activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSession,
			Name:      "active",
			Help:      "Number of currently running scan sessions",
		},
	)

	pm.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemJob,
			Name:      "total",
			Help:      "Total number of scan jobs by preset and status",
		},
		[]string{"preset", "status"},
	)

	pm.jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemJob,
			Name:      "duration_seconds",
			Help:      "Duration of individual scan jobs in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"preset"},
	)

	pm.openPorts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemJob,
			Name:      "open_ports_total",
			Help:      "Total open ports observed across all scan jobs",
		},
	)

	pm.parseErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemParse,
			Name:      "errors_total",
			Help:      "Total number of scan artifacts that failed to parse",
		},
	)

	pm.dbQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDatabase,
			Name:      "queries_total",
			Help:      "Total number of database queries by operation",
		},
		[]string{"operation"},
	)

	pm.dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemDatabase,
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	pm.dbErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDatabase,
			Name:      "errors_total",
			Help:      "Total number of database errors by operation",
		},
		[]string{"operation"},
	)

	pm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	pm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(
		pm.sessionsTotal,
		pm.sessionDuration,
		pm.activeSessions,
		pm.jobsTotal,
		pm.jobDuration,
		pm.openPorts,
		pm.parseErrors,
		pm.dbQueries,
		pm.dbQueryDuration,
		pm.dbErrors,
		pm.httpRequests,
		pm.httpDuration,
	)

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// Registry returns the underlying Prometheus registry for exposition.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// SessionStarted records a session entering the running state.
func (pm *PrometheusMetrics) SessionStarted() {
	pm.activeSessions.Inc()
}

// SessionFinished records a session leaving the running state.
func (pm *PrometheusMetrics) SessionFinished(status string, duration time.Duration) {
	pm.activeSessions.Dec()
	pm.sessionsTotal.WithLabelValues(status).Inc()
	pm.sessionDuration.Observe(duration.Seconds())
}

// JobFinished records a completed, failed, or cancelled scan job.
func (pm *PrometheusMetrics) JobFinished(preset, status string, duration time.Duration) {
	pm.jobsTotal.WithLabelValues(preset, status).Inc()
	pm.jobDuration.WithLabelValues(preset).Observe(duration.Seconds())
}

// AddOpenPorts records open ports found by a scan job.
func (pm *PrometheusMetrics) AddOpenPorts(n int) {
	pm.openPorts.Add(float64(n))
}

// ParseError records a scan artifact that failed to parse.
func (pm *PrometheusMetrics) ParseError() {
	pm.parseErrors.Inc()
}

// DBQuery records a database query with its outcome.
func (pm *PrometheusMetrics) DBQuery(operation string, duration time.Duration, err error) {
	pm.dbQueries.WithLabelValues(operation).Inc()
	pm.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		pm.dbErrors.WithLabelValues(operation).Inc()
	}
}

// HTTPRequest records an HTTP request handled by the API.
func (pm *PrometheusMetrics) HTTPRequest(method, path, status string, duration time.Duration) {
	pm.httpRequests.WithLabelValues(method, path, status).Inc()
	pm.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
