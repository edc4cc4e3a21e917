// Package metrics provides Prometheus metrics for the rollcall check-in station.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for a station.
type Manager struct {
	namespace        string
	subsystem        string
	constLabels      prometheus.Labels
	histogramBuckets []float64
	storeBuckets     []float64
	registry         prometheus.Registerer

	// Scan intake
	scansReceived     prometheus.Counter
	scansAcknowledged prometheus.Counter
	scansDropped      prometheus.Counter
	candidates        prometheus.Counter
	scansSuppressed   prometheus.Counter

	// Check-in outcomes
	outcomes        *prometheus.CounterVec
	guardLatency    prometheus.Histogram
	commitLatency   prometheus.Histogram
	pipelineLatency prometheus.Histogram

	// Local state
	suppressionSize prometheus.Gauge
	rosterSize      prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Storage and notification sinks
	storeLatency  *prometheus.HistogramVec
	notifyErrors  *prometheus.CounterVec
	notifyDropped prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Init()
}

// Init replaces the global manager and its registry. Call it at startup,
// before any recorder runs.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rollcall",
		subsystem:        "station",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		storeBuckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        name,
		Help:        help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        name,
		Help:        help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
	})
}

//nolint:funlen // long function required for comprehensive metrics initialization
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scansReceived = m.counter("scans_received_total", "Decoded payloads received from the scan source")
	m.scansAcknowledged = m.counter("scans_acknowledged_total", "Payloads accepted by the coalescer (transient ack)")
	m.scansDropped = m.counter("scans_dropped_total", "Payloads dropped by the minimum scan interval")
	m.candidates = m.counter("candidates_total", "Candidate scans emitted after the debounce window")
	m.scansSuppressed = m.counter("scans_suppressed_total", "Candidates dropped by the suppression cache")

	m.outcomes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.constLabels,
			Name:        "outcomes_total",
			Help:        "Terminal check-in outcomes by kind and path",
		},
		[]string{"kind", "path"},
	)
	m.guardLatency = m.histogram("guard_latency_milliseconds", "Uniqueness guard latency in milliseconds")
	m.commitLatency = m.histogram("commit_latency_milliseconds", "Attendance insert latency in milliseconds")
	m.pipelineLatency = m.histogram("pipeline_latency_milliseconds", "Candidate to terminal outcome latency in milliseconds")

	m.suppressionSize = m.gauge("suppression_entries", "Entries in the suppression cache")
	m.rosterSize = m.gauge("roster_records", "Records in today's in-memory roster")

	m.queueSize = m.gauge("queue_size", "Candidates waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Candidates enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Candidates dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Failed enqueues")

	m.workerCount = m.gauge("worker_count", "Number of worker shards")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Candidates whose processing panicked or failed")

	m.storeLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.constLabels,
			Name:        "store_latency_milliseconds",
			Help:        "Store call latency by operation",
			Buckets:     m.storeBuckets,
		},
		[]string{"op"},
	)
	m.notifyErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.constLabels,
			Name:        "notify_errors_total",
			Help:        "Failed outcome deliveries by sink",
		},
		[]string{"sink"},
	)
	m.notifyDropped = m.counter("notify_dropped_total", "Outcomes dropped for slow subscribers")

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.constLabels,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.constLabels,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			ConstLabels: m.constLabels,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)
}

// Scan intake.

// RecordScanReceived increments the received payload counter.
func RecordScanReceived() { globalManager.scansReceived.Inc() }

// RecordScanAcknowledged increments the acknowledged payload counter.
func RecordScanAcknowledged() { globalManager.scansAcknowledged.Inc() }

// RecordScanDropped increments the dropped payload counter.
func RecordScanDropped() { globalManager.scansDropped.Inc() }

// RecordCandidate increments the emitted candidate counter.
func RecordCandidate() { globalManager.candidates.Inc() }

// RecordSuppressed increments the suppressed candidate counter.
func RecordSuppressed() { globalManager.scansSuppressed.Inc() }

// Outcomes.

// RecordOutcome counts a terminal outcome. path is "scan" or "manual".
func RecordOutcome(kind, path string) {
	globalManager.outcomes.WithLabelValues(kind, path).Inc()
}

// RecordGuardLatency records uniqueness guard latency in milliseconds.
func RecordGuardLatency(latencyMs float64) { globalManager.guardLatency.Observe(latencyMs) }

// RecordCommitLatency records insert latency in milliseconds.
func RecordCommitLatency(latencyMs float64) { globalManager.commitLatency.Observe(latencyMs) }

// RecordPipelineLatency records candidate processing latency in milliseconds.
func RecordPipelineLatency(latencyMs float64) { globalManager.pipelineLatency.Observe(latencyMs) }

// UpdateSuppressionSize sets the suppression cache size.
func UpdateSuppressionSize(size int64) { globalManager.suppressionSize.Set(float64(size)) }

// UpdateRosterSize sets the roster size.
func UpdateRosterSize(size int) { globalManager.rosterSize.Set(float64(size)) }

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueue.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeue.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// Workers.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// Sinks.

// RecordStoreLatency records store call latency for op.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordNotifyError counts a failed delivery to sink.
func RecordNotifyError(sink string) { globalManager.notifyErrors.WithLabelValues(sink).Inc() }

// RecordNotifyDropped counts an outcome dropped for a slow subscriber.
func RecordNotifyDropped() { globalManager.notifyDropped.Inc() }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Milliseconds converts d to fractional milliseconds at microsecond
// resolution, the unit of every latency recorder here.
func Milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
