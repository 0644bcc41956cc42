// Package metrics provides Prometheus metrics for the attune engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds.
var latencyBuckets = []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // read-only table

// Manager manages all Prometheus metrics for the attune engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Analysis pipeline
	framesAnalyzed   *prometheus.CounterVec
	framesDuplicate  prometheus.Counter
	framesRejected   *prometheus.CounterVec
	analysisLatency  prometheus.Histogram
	fusionConfidence prometheus.Histogram
	fusionDegraded   prometheus.Counter
	cognitiveStates  *prometheus.CounterVec
	riskFactors      *prometheus.CounterVec
	recommendations  prometheus.Counter
	trackedSubjects  prometheus.Gauge

	// Collaborators
	modelRequests   *prometheus.CounterVec
	modelLatency    *prometheus.HistogramVec
	contentRequests *prometheus.CounterVec

	// Result cache
	cacheRequests  *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	cacheEntries   *prometheus.GaugeVec

	// Workflow
	workflowRuns         *prometheus.CounterVec
	workflowActive       prometheus.Gauge
	workflowStepDuration *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Errors and runtime
	errorRateByComponent *prometheus.CounterVec
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "attune",
		subsystem:        "engine",
		histogramBuckets: latencyBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(auto promauto.Factory, name, help string) prometheus.Counter {
	return auto.NewCounter(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
}

func (m *Manager) counterVec(auto promauto.Factory, name, help string, labels ...string) *prometheus.CounterVec {
	return auto.NewCounterVec(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}, labels)
}

func (m *Manager) gauge(auto promauto.Factory, name, help string) prometheus.Gauge {
	return auto.NewGauge(prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
}

func (m *Manager) histogram(auto promauto.Factory, name, help string, buckets []float64) prometheus.Histogram {
	return auto.NewHistogram(prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.framesAnalyzed = m.counterVec(auto, "frames_analyzed_total", "Frames analyzed, by result source", "source")
	m.framesDuplicate = m.counter(auto, "frames_duplicate_total", "Submitted frames dropped as duplicates")
	m.framesRejected = m.counterVec(auto, "frames_rejected_total", "Frames rejected before analysis", "reason")
	m.analysisLatency = m.histogram(auto, "analysis_latency_milliseconds", "End-to-end analysis latency", m.histogramBuckets)
	m.fusionConfidence = m.histogram(auto, "fusion_confidence", "Overall fused confidence", []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1})
	m.fusionDegraded = m.counter(auto, "fusion_degraded_total", "Fused estimates produced without any model input")
	m.cognitiveStates = m.counterVec(auto, "cognitive_state_total", "Classified cognitive states", "state")
	m.riskFactors = m.counterVec(auto, "risk_factors_total", "Detected risk factors", "type")
	m.recommendations = m.counter(auto, "recommendations_total", "Recommendations emitted")
	m.trackedSubjects = m.gauge(auto, "tracked_subjects", "Subjects with a live history window")

	m.modelRequests = m.counterVec(auto, "model_requests_total", "Model provider calls by outcome", "provider", "outcome")
	m.modelLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_latency_milliseconds",
		Help:      "Model provider call latency",
		Buckets:   m.histogramBuckets,
	}, []string{"provider"})
	m.contentRequests = m.counterVec(auto, "content_requests_total", "Content generation calls by source", "source")

	m.cacheRequests = m.counterVec(auto, "cache_requests_total", "Result cache lookups", "cache", "result")
	m.cacheEvictions = m.counterVec(auto, "cache_evictions_total", "Result cache capacity evictions", "cache")
	m.cacheEntries = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_entries",
		Help:      "Result cache entries",
	}, []string{"cache"})

	m.workflowRuns = m.counterVec(auto, "workflow_runs_total", "Finished workflow runs by status", "status")
	m.workflowActive = m.gauge(auto, "workflow_active_runs", "Workflow runs in progress")
	m.workflowStepDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "workflow_step_duration_milliseconds",
		Help:      "Workflow step duration",
		Buckets:   m.histogramBuckets,
	}, []string{"step", "status"})

	m.httpRequests = m.counterVec(auto, "http_requests_total", "Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge(auto, "queue_size", "Current number of frames in queue")
	m.queueCapacity = m.gauge(auto, "queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge(auto, "queue_utilization_ratio", "Queue utilization ratio (0-1)")
	m.queueEnqueueRate = m.counter(auto, "queue_enqueue_total", "Total number of enqueue operations")
	m.queueDequeueRate = m.counter(auto, "queue_dequeue_total", "Total number of dequeue operations")
	m.queueEnqueueErrors = m.counter(auto, "queue_enqueue_errors_total", "Total number of enqueue errors")
	m.queueProcessingLatency = m.histogram(auto, "queue_processing_latency_milliseconds", "Queue processing latency", m.histogramBuckets)

	m.workerCount = m.gauge(auto, "worker_count", "Configured workers")
	m.workerActiveCount = m.gauge(auto, "worker_active_count", "Workers currently processing")
	m.workerIdleCount = m.gauge(auto, "worker_idle_count", "Workers currently idle")
	m.workerMessagesPerSecond = m.gauge(auto, "worker_messages_per_second", "Average frames processed per second")
	m.workerProcessingLatency = m.histogram(auto, "worker_processing_latency_milliseconds", "Worker processing latency", m.histogramBuckets)
	m.workerErrorRate = m.counter(auto, "worker_errors_total", "Worker processing errors")

	m.errorRateByComponent = m.counterVec(auto, "errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.systemMemoryUsage = m.gauge(auto, "system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge(auto, "system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram(auto, "system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Analysis pipeline.

// RecordFrameAnalyzed counts a frame by result source.
func RecordFrameAnalyzed(source string) {
	globalManager.framesAnalyzed.WithLabelValues(source).Inc()
}

// RecordFrameDuplicate counts a duplicate submission.
func RecordFrameDuplicate() {
	globalManager.framesDuplicate.Inc()
}

// RecordFrameRejected counts a frame rejected before analysis.
func RecordFrameRejected(reason string) {
	globalManager.framesRejected.WithLabelValues(reason).Inc()
}

// RecordAnalysisLatency records analysis latency in milliseconds.
func RecordAnalysisLatency(latencyMs float64) {
	globalManager.analysisLatency.Observe(latencyMs)
}

// RecordFusion records the fused confidence and whether it was degraded.
func RecordFusion(confidence float64, degraded bool) {
	globalManager.fusionConfidence.Observe(confidence)
	if degraded {
		globalManager.fusionDegraded.Inc()
	}
}

// RecordCognitiveState counts a classification.
func RecordCognitiveState(state string) {
	globalManager.cognitiveStates.WithLabelValues(state).Inc()
}

// RecordRiskFactor counts a detected risk.
func RecordRiskFactor(riskType string) {
	globalManager.riskFactors.WithLabelValues(riskType).Inc()
}

// RecordRecommendations adds n emitted recommendations.
func RecordRecommendations(n int) {
	globalManager.recommendations.Add(float64(n))
}

// UpdateTrackedSubjects sets the number of live history windows.
func UpdateTrackedSubjects(count int) {
	globalManager.trackedSubjects.Set(float64(count))
}

// Collaborators.

// RecordModelRequest records one provider call.
func RecordModelRequest(provider, outcome string, latencyMs float64) {
	globalManager.modelRequests.WithLabelValues(provider, outcome).Inc()
	globalManager.modelLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordContentRequest counts a content generation by source.
func RecordContentRequest(source string) {
	globalManager.contentRequests.WithLabelValues(source).Inc()
}

// Result cache.

// RecordCacheLookup counts a hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.cacheRequests.WithLabelValues(cache, result).Inc()
}

// RecordCacheEviction counts a capacity eviction.
func RecordCacheEviction(cache string) {
	globalManager.cacheEvictions.WithLabelValues(cache).Inc()
}

// UpdateCacheEntries sets the current entry count.
func UpdateCacheEntries(cache string, count int) {
	globalManager.cacheEntries.WithLabelValues(cache).Set(float64(count))
}

// Workflow.

// RecordWorkflowRun counts a finished run.
func RecordWorkflowRun(status string) {
	globalManager.workflowRuns.WithLabelValues(status).Inc()
}

// UpdateWorkflowActive sets the number of runs in progress.
func UpdateWorkflowActive(count int) {
	globalManager.workflowActive.Set(float64(count))
}

// RecordWorkflowStep records a step duration in milliseconds.
func RecordWorkflowStep(step, status string, durationMs float64) {
	globalManager.workflowStepDuration.WithLabelValues(step, status).Observe(durationMs)
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the average frames processed per second.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Errors and runtime.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
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
