// Package metrics provides Prometheus metrics for the modellab service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Lab state
	editsApplied    *prometheus.CounterVec
	editsRejected   *prometheus.CounterVec
	editsDuplicate  prometheus.Counter
	revision        prometheus.Gauge
	recomputeTotal  prometheus.Counter
	recomputeMillis prometheus.Histogram
	movedEntities   *prometheus.GaugeVec
	maxShift        prometheus.Gauge
	flippedWinners  prometheus.Gauge
	modifiedVectors *prometheus.GaugeVec

	// Dataset
	datasetEntities prometheus.Gauge
	datasetMatchups prometheus.Gauge

	// Edit queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	queueWaitMillis    prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors and runtime
	errorsByComponent    *prometheus.CounterVec
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide collectors

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /healthz

func init() { //nolint:gochecknoinits // collectors must exist before first use
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates and registers a full set of collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "modellab",
		subsystem:        "lab",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.editsApplied = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "edits_applied_total",
		Help:      "Edits that produced a new revision, by vector kind and operation",
	}, []string{"kind", "op"})

	m.editsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "edits_rejected_total",
		Help:      "Edits refused before or during application, by reason",
	}, []string{"reason"})

	m.editsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "edits_duplicate_total",
		Help:      "Retried edits whose ID had already been applied",
	})

	m.revision = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "revision",
		Help:      "Current lab state revision",
	})

	m.recomputeTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_total",
		Help:      "Full recomputations of rankings and predictions",
	})

	m.recomputeMillis = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_latency_milliseconds",
		Help:      "Time to rescore, rerank and repredict the dataset",
		Buckets:   m.histogramBuckets,
	})

	m.movedEntities = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "moved_entities",
		Help:      "Entities whose custom rank differs from baseline, by direction",
	}, []string{"direction"})

	m.maxShift = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "max_rank_shift",
		Help:      "Largest absolute rank change in the current revision",
	})

	m.flippedWinners = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flipped_winners",
		Help:      "Matchups whose predicted winner differs from baseline",
	})

	m.modifiedVectors = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "vector_modified",
		Help:      "1 when the weight vector differs from its defaults",
	}, []string{"kind"})

	m.datasetEntities = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "dataset",
		Name:      "entities",
		Help:      "Entities in the loaded baseline dataset",
	})

	m.datasetMatchups = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "dataset",
		Name:      "matchups",
		Help:      "Matchups in the loaded baseline dataset",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "size",
		Help:      "Edits waiting to be applied",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "capacity",
		Help:      "Maximum number of pending edits",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "enqueued_total",
		Help:      "Edits accepted by the queue",
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "dequeued_total",
		Help:      "Edits handed to the applier",
	})

	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "enqueue_errors_total",
		Help:      "Edits refused by the queue, by reason",
	}, []string{"reason"})

	m.queueWaitMillis = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "wait_milliseconds",
		Help:      "Time an edit spent queued before the applier picked it up",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Live goroutines",
	})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// RecordEditApplied counts an edit that produced a new revision.
func RecordEditApplied(kind, op string) {
	globalManager.editsApplied.WithLabelValues(kind, op).Inc()
}

// RecordEditRejected counts a refused edit.
func RecordEditRejected(reason string) {
	globalManager.editsRejected.WithLabelValues(reason).Inc()
}

// RecordEditDuplicate counts a retried edit.
func RecordEditDuplicate() {
	globalManager.editsDuplicate.Inc()
}

// UpdateRevision sets the current revision.
func UpdateRevision(rev uint64) {
	globalManager.revision.Set(float64(rev))
}

// RecordRecompute observes one recomputation.
func RecordRecompute(latencyMs float64) {
	globalManager.recomputeTotal.Inc()
	globalManager.recomputeMillis.Observe(latencyMs)
}

// UpdateSummary publishes the headline numbers of the current result.
func UpdateSummary(movedUp, movedDown, maxShift, flipped int) {
	globalManager.movedEntities.WithLabelValues("up").Set(float64(movedUp))
	globalManager.movedEntities.WithLabelValues("down").Set(float64(movedDown))
	globalManager.maxShift.Set(float64(maxShift))
	globalManager.flippedWinners.Set(float64(flipped))
}

// UpdateVectorModified flags a vector as differing from its defaults.
func UpdateVectorModified(kind string, modified bool) {
	globalManager.modifiedVectors.WithLabelValues(kind).Set(boolGauge(modified))
}

// UpdateDatasetSize sets the dataset gauges.
func UpdateDatasetSize(entities, matchups int) {
	globalManager.datasetEntities.Set(float64(entities))
	globalManager.datasetMatchups.Set(float64(matchups))
}

// UpdateQueueSize sets the number of pending edits.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue bound.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted edit.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts an edit handed to the applier.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a refused edit.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordQueueWait observes how long an edit waited.
func RecordQueueWait(latencyMs float64) {
	globalManager.queueWaitMillis.Observe(latencyMs)
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry the package-level collectors live in.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
