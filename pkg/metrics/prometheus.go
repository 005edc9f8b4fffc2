// Package metrics provides Prometheus metrics for the upskill service.
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

// Manager manages all Prometheus metrics for the upskill service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core event metrics
	eventsHandled         *prometheus.CounterVec
	eventHandleLatency    *prometheus.HistogramVec
	idempotentReplays     prometheus.Counter
	idempotencyConflicts  prometheus.Counter
	skillLevelDelta       prometheus.Histogram
	auditAppendFailures   prometheus.Counter
	profilesBootstrapped  prometheus.Counter
	focusPointsComputed   prometheus.Histogram
	storeOperationLatency *prometheus.HistogramVec
	storeErrors           *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Replay pipeline metrics
	queueSize         prometheus.Gauge
	queueEnqueueError prometheus.Counter
	workerCount       prometheus.Gauge
	workerErrors      prometheus.Counter

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "upskill",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often gauge-style metrics should be refreshed by callers.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the global manager's gauge refresh period.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.eventsHandled = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_handled_total",
		Help:      "Learning events handled by the supervisor, by event type and outcome",
	}, []string{"event_type", "outcome"})

	m.eventHandleLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_handle_latency_milliseconds",
		Help:      "Time spent in HandleEvent, by event type",
		Buckets:   m.histogramBuckets,
	}, []string{"event_type"})

	m.idempotentReplays = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "idempotent_replays_total",
		Help:      "Events answered from a stored idempotency record",
	})

	m.idempotencyConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "idempotency_conflicts_total",
		Help:      "Events rejected because their idempotency key was reused with another payload",
	})

	m.skillLevelDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "skill_level_delta",
		Help:      "Per-skill level change applied by module completions",
		Buckets:   []float64{-1, -0.5, -0.25, -0.1, 0, 0.1, 0.25, 0.5, 1, 2},
	})

	m.auditAppendFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_append_failures_total",
		Help:      "Audit entries that could not be persisted",
	})

	m.profilesBootstrapped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "profiles_bootstrapped_total",
		Help:      "Skill profiles created from resume estimates",
	})

	m.focusPointsComputed = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "focus_points_computed",
		Help:      "Number of focus points produced per recomputation",
		Buckets:   []float64{0, 1, 2, 3, 5, 10},
	})

	m.storeOperationLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_operation_latency_milliseconds",
		Help:      "Profile store operation latency, by driver and operation",
		Buckets:   m.histogramBuckets,
	}, []string{"driver", "operation"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Profile store failures, by driver and operation",
	}, []string{"driver", "operation"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replay_queue_size",
		Help:      "Events waiting in replay worker queues",
	})

	m.queueEnqueueError = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replay_queue_enqueue_errors_total",
		Help:      "Replay events rejected by a closed or full queue",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replay_worker_count",
		Help:      "Replay workers currently running",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replay_worker_errors_total",
		Help:      "Replay jobs whose handler reported an error",
	})

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
}

// RecordEventHandled counts one HandleEvent call and observes its latency.
func RecordEventHandled(eventType, outcome string, latencyMs float64) {
	if eventType == "" {
		eventType = "unknown"
	}
	globalManager.eventsHandled.WithLabelValues(eventType, outcome).Inc()
	globalManager.eventHandleLatency.WithLabelValues(eventType).Observe(latencyMs)
}

// RecordIdempotentReplay increments the replay counter.
func RecordIdempotentReplay() {
	globalManager.idempotentReplays.Inc()
}

// RecordIdempotencyConflict increments the key-reuse conflict counter.
func RecordIdempotencyConflict() {
	globalManager.idempotencyConflicts.Inc()
}

// RecordSkillLevelDelta observes one applied level change.
func RecordSkillLevelDelta(delta float64) {
	globalManager.skillLevelDelta.Observe(delta)
}

// RecordAuditAppendFailure increments the audit failure counter.
func RecordAuditAppendFailure() {
	globalManager.auditAppendFailures.Inc()
}

// RecordProfileBootstrapped increments the bootstrap counter.
func RecordProfileBootstrapped() {
	globalManager.profilesBootstrapped.Inc()
}

// RecordFocusPoints observes how many focus points one recomputation produced.
func RecordFocusPoints(n int) {
	globalManager.focusPointsComputed.Observe(float64(n))
}

// RecordStoreOperation observes a store call and counts it as an error when failed.
func RecordStoreOperation(driver, operation string, latencyMs float64, failed bool) {
	globalManager.storeOperationLatency.WithLabelValues(driver, operation).Observe(latencyMs)
	if failed {
		globalManager.storeErrors.WithLabelValues(driver, operation).Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the replay backlog.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueError.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
