// Package metrics provides Prometheus metrics for the sync service and
// the indexer worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing, so components can be constructed without metrics in
// tests.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	segmentsIndexed  prometheus.Counter
	ingestSkipped    prometheus.Counter
	ingestErrors     prometheus.Counter
	syncRequests     *prometheus.CounterVec
	syncConfidence   prometheus.Histogram
	searchDuration   prometheus.Histogram
}

var global *Metrics

// New creates and registers the collectors. Registration is
// process-wide, so repeated calls return the same instance.
func New() *Metrics {
	if global != nil {
		return global
	}

	global = &Metrics{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamsync_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "streamsync_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path", "status"},
		),
		requestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "streamsync_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		segmentsIndexed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "streamsync_segments_indexed_total",
				Help: "Total number of segment upserts performed by the watcher",
			},
		),
		ingestSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "streamsync_ingest_skipped_total",
				Help: "Total number of files skipped because the name did not match the segment pattern",
			},
		),
		ingestErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "streamsync_ingest_errors_total",
				Help: "Total number of ingest failures (watch errors and failed upserts)",
			},
		),
		syncRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamsync_sync_requests_total",
				Help: "Total number of sync requests by outcome",
			},
			[]string{"outcome"},
		),
		syncConfidence: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "streamsync_sync_confidence",
				Help:    "Confidence scores of successful sync resolutions",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
		),
		searchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "streamsync_search_duration_seconds",
				Help:    "Timestamp search duration in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
	}
	return global
}

// SegmentIndexed records one successful segment upsert.
func (m *Metrics) SegmentIndexed() {
	if m == nil {
		return
	}
	m.segmentsIndexed.Inc()
}

// IngestSkipped records a file skipped for not matching the pattern.
func (m *Metrics) IngestSkipped() {
	if m == nil {
		return
	}
	m.ingestSkipped.Inc()
}

// IngestError records a watch or upsert failure.
func (m *Metrics) IngestError() {
	if m == nil {
		return
	}
	m.ingestErrors.Inc()
}

// SyncRequest records a sync request by outcome (ok, no_match, invalid).
func (m *Metrics) SyncRequest(outcome string) {
	if m == nil {
		return
	}
	m.syncRequests.WithLabelValues(outcome).Inc()
}

// SyncConfidence records the confidence of a resolved sync.
func (m *Metrics) SyncConfidence(confidence float64) {
	if m == nil {
		return
	}
	m.syncConfidence.Observe(confidence)
}

// SearchObserved records the duration of one timestamp search.
func (m *Metrics) SearchObserved(d time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments an HTTP handler with request count, duration,
// and in-flight gauges.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		status := strconv.Itoa(rw.status)
		m.requestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		m.requestDuration.WithLabelValues(r.Method, r.URL.Path, status).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
