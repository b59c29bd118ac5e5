// Package metrics provides Prometheus metrics for the zfinder scan pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default bucket layouts.
var (
	defaultScanBuckets = prometheus.ExponentialBuckets(1, 2, 16) // 1ms .. ~32s
	defaultHitBuckets  = prometheus.ExponentialBuckets(4, 2, 12) // 4 .. 8192 hits
	defaultPeakBuckets = prometheus.ExponentialBuckets(1, 2, 14) // 1 .. 8192 matches
	defaultHTTPBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// Manager owns every collector exported by zfinder.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingestion
	rowsRead      prometheus.Counter
	rowsMalformed prometheus.Counter
	eventsRead    prometheus.Counter
	eventsSkipped prometheus.Counter
	eventsReused  prometheus.Counter

	// Scanning
	eventsScanned prometheus.Counter
	eventsFailed  *prometheus.CounterVec
	tierSelected  *prometheus.CounterVec
	scanLatency   prometheus.Histogram
	hitsPerEvent  prometheus.Histogram
	peakScore     prometheus.Histogram
	gridBins      prometheus.Gauge

	// Queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge

	// Output
	resultsWritten prometheus.Counter
	plotsWritten   prometheus.Counter

	// Diagnostics HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "zfinder",
		subsystem:        "zscan",
		histogramBuckets: defaultScanBuckets,
		customLabels:     make(map[string]string),
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
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rowsRead = m.counter("rows_read_total", "Hit rows parsed from the input")
	m.rowsMalformed = m.counter("rows_malformed_total", "Hit rows rejected as malformed")
	m.eventsRead = m.counter("events_read_total", "Events finalised by the segmenter")
	m.eventsSkipped = m.counter("events_skipped_total", "Events skipped before scanning")
	m.eventsReused = m.counter("event_ids_reused_total", "Events whose id reappeared after another event")

	m.eventsScanned = m.counter("events_scanned_total", "Events that produced a z estimate")
	m.eventsFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_failed_total",
		Help:        "Events that ended in a typed scan failure",
		ConstLabels: m.customLabels,
	}, []string{"kind"})
	m.tierSelected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "tolerance_tier_total",
		Help:        "Tolerance tier chosen per event",
		ConstLabels: m.customLabels,
	}, []string{"tier"})
	m.scanLatency = m.histogram("scan_latency_milliseconds", "Wall time of one event scan", m.histogramBuckets)
	m.hitsPerEvent = m.histogram("hits_per_event", "Hit multiplicity of scanned events", defaultHitBuckets)
	m.peakScore = m.histogram("peak_score", "Match count of the best hypothesis bin", defaultPeakBuckets)
	m.gridBins = m.gauge("grid_bins", "Number of z hypotheses swept per event")

	m.queueSize = m.gauge("queue_size", "Events waiting to be scanned")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the event queue")

	m.resultsWritten = m.counter("results_written_total", "Result lines written to the output")
	m.plotsWritten = m.counter("plots_written_total", "Score profile plots written")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Diagnostics HTTP requests",
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status"})
	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "Diagnostics HTTP request latency",
		Buckets:     defaultHTTPBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status"})
}

// Ingestion.

// RecordRowRead counts one parsed input row.
func RecordRowRead() { globalManager.rowsRead.Inc() }

// RecordRowMalformed counts one rejected input row.
func RecordRowMalformed() { globalManager.rowsMalformed.Inc() }

// RecordEventRead counts one finalised event.
func RecordEventRead() { globalManager.eventsRead.Inc() }

// RecordEventSkipped counts one event skipped by skip_events.
func RecordEventSkipped() { globalManager.eventsSkipped.Inc() }

// RecordEventIDReused counts an event id that reappeared non-contiguously.
func RecordEventIDReused() { globalManager.eventsReused.Inc() }

// Scanning.

// RecordEventScanned counts one successful estimate.
func RecordEventScanned() { globalManager.eventsScanned.Inc() }

// RecordEventFailed counts a failed event by failure kind.
func RecordEventFailed(kind string) { globalManager.eventsFailed.WithLabelValues(kind).Inc() }

// RecordTier counts the tolerance tier chosen for an event.
func RecordTier(tier string) { globalManager.tierSelected.WithLabelValues(tier).Inc() }

// RecordScanLatency records scan wall time in milliseconds.
func RecordScanLatency(latencyMs float64) { globalManager.scanLatency.Observe(latencyMs) }

// RecordHitsPerEvent records the hit count of an event.
func RecordHitsPerEvent(n int) { globalManager.hitsPerEvent.Observe(float64(n)) }

// RecordPeakScore records the best bin's match count.
func RecordPeakScore(score int) { globalManager.peakScore.Observe(float64(score)) }

// UpdateGridBins sets the number of bins swept per event.
func UpdateGridBins(bins int) { globalManager.gridBins.Set(float64(bins)) }

// Queue.

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// Output.

// RecordResultWritten counts one written result line.
func RecordResultWritten() { globalManager.resultsWritten.Inc() }

// RecordPlotWritten counts one written plot.
func RecordPlotWritten() { globalManager.plotsWritten.Inc() }

// Diagnostics HTTP.

// RecordHTTPRequest counts one diagnostics request and its latency.
func RecordHTTPRequest(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	globalManager.httpDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
