// Package metrics exposes Prometheus collectors for the quotes crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal          *prometheus.CounterVec
	recordsTotal        *prometheus.CounterVec
	recordFailuresTotal *prometheus.CounterVec
	storeOpsTotal       *prometheus.CounterVec
	runsTotal           *prometheus.CounterVec
	runDurationSeconds  prometheus.Histogram

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotes_pages_total",
				Help: "Listing pages fetched, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotes_records_total",
				Help: "Quote records processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		recordFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotes_record_failures_total",
				Help: "Quote records skipped, labeled by the failing pipeline stage.",
			},
			[]string{"stage"},
		)

		storeOpsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotes_store_ops_total",
				Help: "Storage gateway operations, labeled by entity and result.",
			},
			[]string{"entity", "result"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotes_runs_total",
				Help: "Crawl runs, labeled by status.",
			},
			[]string{"status"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quotes_run_duration_seconds",
				Help:    "Histogram of full crawl run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

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
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts a listing page by outcome (processed, empty, status, transport, parse).
func ObservePage(outcome string) {
	Init()
	pagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRecord counts a record as persisted or failed. For failures the
// stage (extract, profile, author, quote) is also recorded.
func ObserveRecord(outcome, stage string) {
	Init()
	recordsTotal.WithLabelValues(outcome).Inc()
	if stage != "" {
		recordFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// ObserveStore counts a gateway operation (inserted, existing, error).
func ObserveStore(entity, result string) {
	Init()
	storeOpsTotal.WithLabelValues(entity, result).Inc()
}

// ObserveRun records a finished run.
func ObserveRun(status string, duration time.Duration) {
	Init()
	runsTotal.WithLabelValues(status).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest records one request served by the ops API.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
