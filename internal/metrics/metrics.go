// Package metrics exposes Prometheus collectors for the bitcrush service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeStored       = "stored"
	OutcomeDecodeError  = "decode_error"
	OutcomeTooLarge     = "too_large"
	OutcomeEncodeError  = "encode_error"
	OutcomeCanceled     = "canceled"
	OutcomeUnavailable  = "unavailable"
	OutcomeInternalFail = "internal_error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitcrush_submissions_total",
			Help: "Total number of image submissions, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	transformDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bitcrush_transform_duration_seconds",
			Help:    "Histogram of decode, crush, and final encode durations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	artifactBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bitcrush_artifact_bytes",
			Help:    "Size of stored artifacts in bytes.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	storeEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bitcrush_store_entries",
			Help: "Number of artifacts held in the in-memory store.",
		},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bitcrush_active_workers",
			Help: "Number of workers currently running a transform.",
		},
	)

	sinkFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitcrush_sink_failures_total",
			Help: "Total post-insert sink failures, labeled by sink.",
		},
		[]string{"sink"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest records metrics for an HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSubmission increments the submission counter for outcome.
func ObserveSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveTransform records how long a transform took.
func ObserveTransform(duration time.Duration) {
	transformDurationSeconds.Observe(duration.Seconds())
}

// ObserveArtifact records the size of a stored artifact.
func ObserveArtifact(size int) {
	artifactBytes.Observe(float64(size))
}

// SetStoreEntries sets the store size gauge.
func SetStoreEntries(n int) {
	storeEntries.Set(float64(n))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveSinkFailure counts a failed ledger, archive, or publish call.
func ObserveSinkFailure(sink string) {
	sinkFailuresTotal.WithLabelValues(sink).Inc()
}
