package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Extraction
	repliesParsed     *prometheus.CounterVec
	validationFailed  *prometheus.CounterVec
	fieldErrors       *prometheus.CounterVec
	lowConfidence     *prometheus.CounterVec
	extractionLatency *prometheus.HistogramVec

	// Reconciliation store
	submissionsRegistered prometheus.Counter
	submissionsRemoved    prometheus.Counter
	duplicateSources      prometheus.Counter
	overridesApplied      prometheus.Counter
	storedSubmissions     prometheus.Gauge
	recordedSubmissions   prometheus.Gauge
	storeLatency          *prometheus.HistogramVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueRejected          prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers and batches
	workerCount             prometheus.Gauge
	workerActive            prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	batchSize               prometheus.Histogram
	batchDuration           prometheus.Histogram
	analyzerErrors          prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the global manager with one built from opts on a fresh
// registry, which GetRegistry returns from then on. Call it once at startup
// before any handler captures the registry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	all := append(append([]Option(nil), opts...), WithPrometheusRegistry(registry))
	globalManager = NewManager(all...)
	customRegistry = registry
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "reviewdesk",
		subsystem:        "srer",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often gauge updaters should poll.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts(m.counterOpts(name, help))
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.repliesParsed = auto.NewCounterVec(
		m.counterOpts("replies_parsed_total", "Agent replies parsed, by strategy (strict, fallback, failed)"),
		[]string{"strategy"},
	)
	m.validationFailed = auto.NewCounterVec(
		m.counterOpts("validation_failures_total", "Candidates rejected by schema validation"),
		[]string{"schema"},
	)
	m.fieldErrors = auto.NewCounterVec(
		m.counterOpts("field_errors_total", "Field errors found during validation, by code"),
		[]string{"schema", "code"},
	)
	m.lowConfidence = auto.NewCounterVec(
		m.counterOpts("low_confidence_records_total", "Records accepted with warnings"),
		[]string{"schema"},
	)
	m.extractionLatency = auto.NewHistogramVec(
		m.histogramOpts("extraction_latency_milliseconds", "Parse and validate latency in milliseconds", nil),
		[]string{"schema", "outcome"},
	)

	m.submissionsRegistered = auto.NewCounter(m.counterOpts("submissions_registered_total", "Submissions registered"))
	m.submissionsRemoved = auto.NewCounter(m.counterOpts("submissions_removed_total", "Submissions removed"))
	m.duplicateSources = auto.NewCounter(m.counterOpts("duplicate_sources_total", "Registrations rejected for a duplicate source"))
	m.overridesApplied = auto.NewCounter(m.counterOpts("overrides_applied_total", "Human overrides applied"))
	m.storedSubmissions = auto.NewGauge(m.gaugeOpts("stored_submissions", "Submissions currently held by the store"))
	m.recordedSubmissions = auto.NewGauge(m.gaugeOpts("recorded_submissions", "Submissions that carry a machine record"))
	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_operation_latency_milliseconds", "Store operation latency in milliseconds", nil),
		[]string{"operation"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size divided by capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Jobs dequeued"))
	m.queueRejected = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Jobs rejected by a full or closed queue"))
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogramOpts("queue_wait_milliseconds", "Time a job spent queued before a worker picked it up", nil),
	)

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Workers started"))
	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently processing a job"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker job latency in milliseconds", nil),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Jobs that ended in an error"))
	m.batchSize = auto.NewHistogram(
		m.histogramOpts("batch_size", "Submissions per batch analysis", []float64{1, 2, 5, 10, 25, 50, 100, 250}),
	)
	m.batchDuration = auto.NewHistogram(
		m.histogramOpts("batch_duration_milliseconds", "Batch analysis duration in milliseconds", nil),
	)
	m.analyzerErrors = auto.NewCounter(m.counterOpts("analyzer_errors_total", "Analyzer calls that failed"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// RefreshInterval returns the polling interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// RecordReplyParsed counts a parse attempt by strategy.
func RecordReplyParsed(strategy string) {
	globalManager.repliesParsed.WithLabelValues(strategy).Inc()
}

// RecordValidationFailure counts a rejected candidate and each of its field error codes.
func RecordValidationFailure(schema string, codes ...string) {
	globalManager.validationFailed.WithLabelValues(schema).Inc()
	for _, c := range codes {
		globalManager.fieldErrors.WithLabelValues(schema, c).Inc()
	}
}

// RecordLowConfidence counts a record accepted with warnings.
func RecordLowConfidence(schema string) {
	globalManager.lowConfidence.WithLabelValues(schema).Inc()
}

// RecordExtraction observes one parse and validate run.
func RecordExtraction(schema, outcome string, d time.Duration) {
	globalManager.extractionLatency.WithLabelValues(schema, outcome).Observe(ms(d))
}

// RecordSubmissionRegistered counts a registration.
func RecordSubmissionRegistered() { globalManager.submissionsRegistered.Inc() }

// RecordSubmissionRemoved counts a removal.
func RecordSubmissionRemoved() { globalManager.submissionsRemoved.Inc() }

// RecordDuplicateSource counts a registration rejected for a reused source name.
func RecordDuplicateSource() { globalManager.duplicateSources.Inc() }

// RecordOverride counts an applied override.
func RecordOverride() { globalManager.overridesApplied.Inc() }

// UpdateStoredSubmissions sets how many submissions the store holds and how many carry a record.
func UpdateStoredSubmissions(total, recorded int) {
	globalManager.storedSubmissions.Set(float64(total))
	globalManager.recordedSubmissions.Set(float64(recorded))
}

// RecordStoreLatency observes one store operation.
func RecordStoreLatency(operation string, d time.Duration) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(ms(d))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the rejected enqueue counter.
func RecordQueueEnqueueError() { globalManager.queueRejected.Inc() }

// RecordQueueWait observes how long a job waited in the queue.
func RecordQueueWait(d time.Duration) { globalManager.queueProcessingLatency.Observe(ms(d)) }

// UpdateWorkerCount sets the number of started workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActive.Set(float64(count)) }

// RecordWorkerProcessingLatency observes one job.
func RecordWorkerProcessingLatency(d time.Duration) {
	globalManager.workerProcessingLatency.Observe(ms(d))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordBatch observes one batch analysis.
func RecordBatch(size int, d time.Duration) {
	globalManager.batchSize.Observe(float64(size))
	globalManager.batchDuration.Observe(ms(d))
}

// RecordAnalyzerError counts a failed analyzer call.
func RecordAnalyzerError() { globalManager.analyzerErrors.Inc() }

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, d time.Duration) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms(d))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
