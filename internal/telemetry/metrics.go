// Package telemetry provides Prometheus metrics for the HTTP surface and the
// analysis pipeline.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// RequestsTotal counts HTTP requests by method, route and status class.
	RequestsTotal *prometheus.CounterVec
	// RequestDuration observes request latency by route.
	RequestDuration *prometheus.HistogramVec

	// Analysis pipeline counters.
	RecordingsSubmitted prometheus.Counter
	AnalysesCompleted   prometheus.Counter
	AnalysesFailed      prometheus.Counter
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "readingpractice_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"})
		RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "readingpractice_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"})
		RecordingsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "readingpractice_recordings_submitted_total",
			Help: "Recordings accepted for analysis",
		})
		AnalysesCompleted = promauto.NewCounter(prometheus.CounterOpts{
			Name: "readingpractice_analyses_completed_total",
			Help: "Recordings fully scored",
		})
		AnalysesFailed = promauto.NewCounter(prometheus.CounterOpts{
			Name: "readingpractice_analyses_failed_total",
			Help: "Recordings that ended in failed status",
		})
	})
}

// Inc bumps c if metrics are initialized; safe to call from tests that never
// ran Init.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
