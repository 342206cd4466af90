// Package metrics provides Prometheus metrics for the driftmark evaluation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the driftmark service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core Business Metrics - What really matters for an evaluation service
	evaluationsTotal   *prometheus.CounterVec
	evaluationErrors   *prometheus.CounterVec
	observationsTotal  prometheus.Counter
	changeRowsTotal    prometheus.Counter
	flaggedRowsTotal   prometheus.Counter
	evaluationDuration prometheus.Histogram

	// Group Metrics - Per-subject-group processing
	groupLatency        prometheus.Histogram
	groupsPerEvaluation prometheus.Histogram
	parallelEvaluations prometheus.Counter

	// Operational Health Metrics
	workerCount prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "driftmark",
		subsystem:        "evaluator",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics
	m.evaluationsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "evaluations_total",
			Help:      "Total number of completed evaluations by change method",
		},
		[]string{"method"},
	)

	m.evaluationErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "evaluation_errors_total",
			Help:      "Total number of failed evaluations by error kind",
		},
		[]string{"kind"},
	)

	m.observationsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observations_total",
		Help:      "Total number of input observations evaluated",
	})

	m.changeRowsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "change_rows_total",
		Help:      "Total number of change rows emitted",
	})

	m.flaggedRowsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flagged_rows_total",
		Help:      "Total number of change rows whose magnitude met the threshold",
	})

	m.evaluationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_duration_milliseconds",
		Help:      "Histogram of end-to-end evaluation duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Group Metrics
	m.groupLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "group_latency_milliseconds",
		Help:      "Per-subject-group computation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.groupsPerEvaluation = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "groups_per_evaluation",
		Help:      "Number of subject groups per evaluation",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})

	m.parallelEvaluations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "parallel_evaluations_total",
		Help:      "Total number of evaluations run on the worker pool",
	})

	// Operational Health Metrics
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Configured number of group evaluation workers",
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordEvaluation increments the completed evaluations counter for a method.
func RecordEvaluation(method string) {
	globalManager.evaluationsTotal.WithLabelValues(method).Inc()
}

// RecordEvaluationError increments the failed evaluations counter for an error kind.
func RecordEvaluationError(kind string) {
	globalManager.evaluationErrors.WithLabelValues(kind).Inc()
}

// RecordObservations adds to the input observations counter.
func RecordObservations(n int) {
	globalManager.observationsTotal.Add(float64(n))
}

// RecordChangeRows adds to the emitted change rows counter.
func RecordChangeRows(n int) {
	globalManager.changeRowsTotal.Add(float64(n))
}

// RecordFlaggedRows adds to the flagged rows counter.
func RecordFlaggedRows(n int) {
	globalManager.flaggedRowsTotal.Add(float64(n))
}

// RecordEvaluationDuration records end-to-end evaluation duration in milliseconds.
func RecordEvaluationDuration(durationMs float64) {
	globalManager.evaluationDuration.Observe(durationMs)
}

// RecordGroupLatency records per-group computation latency in milliseconds.
func RecordGroupLatency(latencyMs float64) {
	globalManager.groupLatency.Observe(latencyMs)
}

// ObserveGroupCount records the number of subject groups in an evaluation.
func ObserveGroupCount(n int) {
	globalManager.groupsPerEvaluation.Observe(float64(n))
}

// RecordParallelEvaluation increments the worker-pool evaluations counter.
func RecordParallelEvaluation() {
	globalManager.parallelEvaluations.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
