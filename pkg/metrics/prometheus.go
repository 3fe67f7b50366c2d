// Package metrics provides Prometheus metrics for the badgeboard client.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector exported by the client.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Request ledger
	ledgerInFlight      prometheus.Gauge
	ledgerResponseReady prometheus.Gauge
	ledgerDedupeHits    *prometheus.CounterVec

	// Remote asset cache
	assetLookups *prometheus.CounterVec

	// Image materializer
	materializeLatency  prometheus.Histogram
	materializeFailures *prometheus.CounterVec

	// Fetch queue
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueEnqueued  prometheus.Counter
	queueDequeued  prometheus.Counter
	queueRejected  *prometheus.CounterVec
	queueLatencyMs prometheus.Histogram

	// Fetch workers
	workerActiveCount prometheus.Gauge
	jobLatency        *prometheus.HistogramVec
	jobErrors         *prometheus.CounterVec

	// Remote server
	remoteRequests *prometheus.CounterVec

	// Leaderboards
	leaderboardMerges      prometheus.Counter
	leaderboardDesyncs     prometheus.Counter
	leaderboardCount       prometheus.Gauge
	leaderboardTransitions *prometheus.CounterVec

	// Diagnostics HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "badgeboard",
		subsystem:        "client",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether recorders update collectors.
func (m *Manager) Enabled() bool { return m.enabled.Load() }

// RefreshInterval is how often polled gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return time.Duration(m.refreshInterval.Load())
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.ledgerInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("ledger_in_flight"),
		Help: "Requests enqueued and not yet resolved",
	})
	m.ledgerResponseReady = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("ledger_response_ready"),
		Help: "Requests resolved and not yet consumed",
	})
	m.ledgerDedupeHits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("ledger_dedupe_hits_total"),
		Help: "Enqueue attempts suppressed because the key was already tracked",
	}, []string{"request"})

	m.assetLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("asset_lookups_total"),
		Help: "FetchOrLoad outcomes by asset kind",
	}, []string{"kind", "result"})

	m.materializeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("materialize_latency_milliseconds"),
		Help:    "Decode, scale and convert latency in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.materializeFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("materialize_failures_total"),
		Help: "Materializer failures by stage",
	}, []string{"stage"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("queue_size"),
		Help: "Current number of queued fetch jobs",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("queue_capacity"),
		Help: "Configured fetch queue capacity",
	})
	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("queue_enqueued_total"),
		Help: "Fetch jobs accepted by the queue",
	})
	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("queue_dequeued_total"),
		Help: "Fetch jobs handed to workers",
	})
	m.queueRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("queue_rejected_total"),
		Help: "Fetch jobs rejected by the queue",
	}, []string{"reason"})
	m.queueLatencyMs = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("queue_wait_milliseconds"),
		Help:    "Time jobs spent queued before a worker picked them up",
		Buckets: m.histogramBuckets,
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("worker_active_count"),
		Help: "Number of running fetch workers",
	})
	m.jobLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("job_latency_milliseconds"),
		Help:    "Fetch job handling latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"kind"})
	m.jobErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("job_errors_total"),
		Help: "Fetch jobs that failed",
	}, []string{"kind"})

	m.remoteRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("remote_requests_total"),
		Help: "Requests sent to the remote server by operation and status code",
	}, []string{"op", "status_code"})

	m.leaderboardMerges = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("leaderboard_merges_total"),
		Help: "Submission responses merged into the ranking store",
	})
	m.leaderboardDesyncs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("leaderboard_desync_total"),
		Help: "Submission responses that referenced an unknown leaderboard",
	})
	m.leaderboardCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("leaderboard_collection_size"),
		Help: "Leaderboards known for the loaded game",
	})
	m.leaderboardTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("leaderboard_run_transitions_total"),
		Help: "Leaderboard run state transitions by target state",
	}, []string{"state"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_requests_total"),
		Help: "Diagnostics HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "Diagnostics HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_total"),
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_memory_bytes"),
		Help: "Heap bytes allocated",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_goroutines"),
		Help: "Number of goroutines",
	})
}

// Ledger.

// UpdateLedgerSizes sets the in-flight and response-ready gauges.
func UpdateLedgerSizes(inFlight, ready int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.ledgerInFlight.Set(float64(inFlight))
	globalManager.ledgerResponseReady.Set(float64(ready))
}

// RecordLedgerDedupeHit counts an enqueue suppressed by the ledger.
func RecordLedgerDedupeHit(request string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.ledgerDedupeHits.WithLabelValues(request).Inc()
}

// Asset cache.

// RecordAssetLookup counts a FetchOrLoad outcome.
func RecordAssetLookup(kind, result string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.assetLookups.WithLabelValues(kind, result).Inc()
}

// Materializer.

// RecordMaterializeLatency records materializer latency.
func RecordMaterializeLatency(latencyMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.materializeLatency.Observe(latencyMs)
}

// RecordMaterializeFailure counts a materializer failure at the given stage.
func RecordMaterializeFailure(stage string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.materializeFailures.WithLabelValues(stage).Inc()
}

// Queue.

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueDequeued.Inc()
}

// RecordQueueRejected counts a rejected enqueue.
func RecordQueueRejected(reason string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// RecordQueueWait records how long a job waited in the queue.
func RecordQueueWait(latencyMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.queueLatencyMs.Observe(latencyMs)
}

// Workers.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordJobLatency records handling latency for a job kind.
func RecordJobLatency(kind string, latencyMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.jobLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordJobError counts a failed job.
func RecordJobError(kind string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.jobErrors.WithLabelValues(kind).Inc()
}

// Remote.

// RecordRemoteRequest counts a request to the remote server.
func RecordRemoteRequest(op, statusCode string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.remoteRequests.WithLabelValues(op, statusCode).Inc()
}

// Leaderboards.

// RecordLeaderboardMerge counts a merged submission response.
func RecordLeaderboardMerge() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.leaderboardMerges.Inc()
}

// RecordLeaderboardDesync counts a response for an unknown leaderboard.
func RecordLeaderboardDesync() {
	if !globalManager.Enabled() {
		return
	}
	globalManager.leaderboardDesyncs.Inc()
}

// UpdateLeaderboardCount sets the collection size.
func UpdateLeaderboardCount(count int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.leaderboardCount.Set(float64(count))
}

// RecordLeaderboardTransition counts a run state transition.
func RecordLeaderboardTransition(state string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.leaderboardTransitions.WithLabelValues(state).Inc()
}

// HTTP.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.Enabled() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// SetEnabled switches every recorder on or off. Collectors keep their
// last values while disabled.
func SetEnabled(enabled bool) {
	globalManager.enabled.Store(enabled)
}

// Enabled reports whether the global recorders are collecting.
func Enabled() bool { return globalManager.Enabled() }

// SetRefreshInterval sets how often pollers refresh the system gauges.
func SetRefreshInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRefreshInterval, interval)
	}
	globalManager.refreshInterval.Store(int64(interval))
	return nil
}

// RefreshInterval returns the global poll interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
