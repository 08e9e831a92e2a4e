// Package metrics provides Prometheus metrics for the riftelo rating service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline
	matchesProcessed prometheus.Counter
	matchesSkipped   *prometheus.CounterVec
	pipelineRuns     *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	trackedTeams     prometheus.Gauge
	regionOffset     *prometheus.GaugeVec

	// Result cache
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheErrors  prometheus.Counter
	storeLatency *prometheus.HistogramVec

	// Validation
	validationAccuracy *prometheus.GaugeVec
	workerActive       prometheus.Gauge
	queueLength        prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "riftelo",
		subsystem:        "ratings",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.matchesProcessed = auto.NewCounter(m.counterOpts("matches_processed_total", "Matches folded into a rating trajectory"))
	m.matchesSkipped = auto.NewCounterVec(m.counterOpts("matches_skipped_total", "Matches skipped as malformed, by reason"), []string{"reason"})
	m.pipelineRuns = auto.NewCounterVec(m.counterOpts("pipeline_runs_total", "Full pipeline computations by variant"), []string{"variant"})
	m.pipelineDuration = auto.NewHistogram(m.histogramOpts("pipeline_duration_milliseconds", "Wall time of one full pipeline computation"))
	m.trackedTeams = auto.NewGauge(m.gaugeOpts("tracked_teams", "Teams rated by the most recent computation"))
	m.regionOffset = auto.NewGaugeVec(m.gaugeOpts("region_offset", "Final learned regional offset of the most recent computation"), []string{"region"})

	m.cacheHits = auto.NewCounter(m.counterOpts("cache_hits_total", "Result cache lookups answered from storage"))
	m.cacheMisses = auto.NewCounter(m.counterOpts("cache_misses_total", "Result cache lookups that triggered a computation"))
	m.cacheErrors = auto.NewCounter(m.counterOpts("cache_errors_total", "Result cache storage failures"))
	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds", "Result store operation latency"), []string{"op"})

	m.validationAccuracy = auto.NewGaugeVec(m.gaugeOpts("validation_accuracy", "Prediction accuracy of the latest cross-validation, by fold"), []string{"fold"})
	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active_count", "Validation workers currently running a fold"))
	m.queueLength = auto.NewGauge(m.gaugeOpts("queue_length", "Validation fold jobs waiting in the queue"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
}

// RecordMatchProcessed increments the processed matches counter.
func RecordMatchProcessed() { globalManager.matchesProcessed.Inc() }

// RecordMatchSkipped counts a skipped match under reason.
func RecordMatchSkipped(reason string) { globalManager.matchesSkipped.WithLabelValues(reason).Inc() }

// RecordPipelineRun records one full computation and its duration.
func RecordPipelineRun(variant string, durationMs float64) {
	globalManager.pipelineRuns.WithLabelValues(variant).Inc()
	globalManager.pipelineDuration.Observe(durationMs)
}

// UpdateTrackedTeams sets the number of teams in the latest result.
func UpdateTrackedTeams(count int) { globalManager.trackedTeams.Set(float64(count)) }

// UpdateRegionOffset sets the final offset of region.
func UpdateRegionOffset(region string, offset float64) {
	globalManager.regionOffset.WithLabelValues(region).Set(offset)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { globalManager.cacheHits.Inc() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { globalManager.cacheMisses.Inc() }

// RecordCacheError increments the cache error counter.
func RecordCacheError() { globalManager.cacheErrors.Inc() }

// RecordStoreLatency observes the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateValidationAccuracy sets the accuracy of a validation fold.
func UpdateValidationAccuracy(fold int, accuracy float64) {
	globalManager.validationAccuracy.WithLabelValues(strconv.Itoa(fold)).Set(accuracy)
}

// AddWorkerActive adjusts the number of busy validation workers.
func AddWorkerActive(delta int) { globalManager.workerActive.Add(float64(delta)) }

// UpdateQueueLength sets the number of queued fold jobs.
func UpdateQueueLength(n int) { globalManager.queueLength.Set(float64(n)) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry { return customRegistry }
