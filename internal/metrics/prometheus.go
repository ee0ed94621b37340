package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubmissionsProcessed counts submissions handled per stage ("hash", "rank")
	SubmissionsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lichen_submissions_processed_total",
			Help: "Total number of submissions processed by a pipeline stage",
		},
		[]string{"stage"},
	)

	// FingerprintTruncations counts hash files cut at MAX_SEQUENCES_PER_FILE
	FingerprintTruncations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lichen_fingerprint_truncations_total",
			Help: "Total number of fingerprint files truncated at the per-file sequence cap",
		},
	)

	// SoftWarnings counts per-submission conditions that did not abort a run
	SoftWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lichen_soft_warnings_total",
			Help: "Per-submission soft conditions recorded during runs",
		},
		[]string{"stage"},
	)

	// RunsTotal counts finished runs by outcome
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lichen_runs_total",
			Help: "Total number of pipeline runs by status",
		},
		[]string{"status"},
	)

	// RequestCount counts API requests
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lichen_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration measures API request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lichen_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// StageDuration measures how long each stage took
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lichen_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
		[]string{"stage"},
	)
)

var registerOnce sync.Once

// InitPrometheus registers all collectors; safe to call more than once.
func InitPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(SubmissionsProcessed)
		prometheus.MustRegister(FingerprintTruncations)
		prometheus.MustRegister(SoftWarnings)
		prometheus.MustRegister(RunsTotal)
		prometheus.MustRegister(StageDuration)
		prometheus.MustRegister(RequestCount)
		prometheus.MustRegister(RequestDuration)
	})
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
