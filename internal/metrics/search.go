package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search backend and multi-search Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esgate",
			Name:      "backend_requests_total",
			Help:      "Total number of search backend calls",
		},
		[]string{"status"}, // "ok" / wire error type
	)

	BackendRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "esgate",
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend call duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	BackendInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "esgate",
			Name:      "backend_requests_in_flight",
			Help:      "Search backend calls currently in flight",
		},
	)

	MultiSearchRecords = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "esgate",
			Name:      "msearch_records",
			Help:      "Number of records per multi-search request",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	MultiSearchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "esgate",
			Name:      "msearch_record_errors_total",
			Help:      "Multi-search records that failed during execution",
		},
		[]string{"type"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(BackendRequestDuration)
	prometheus.MustRegister(BackendInFlight)
	prometheus.MustRegister(MultiSearchRecords)
	prometheus.MustRegister(MultiSearchErrorsTotal)
	searchMetricsRegistered = true
}
