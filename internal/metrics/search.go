package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search pipeline Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careatlas",
			Name:      "searches_total",
			Help:      "Total number of hybrid searches",
		},
		[]string{"status"}, // "ok" / "error"
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "careatlas",
			Name:      "search_results",
			Help:      "Number of results returned per hybrid search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
	)

	SourceOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careatlas",
			Name:      "source_outcomes_total",
			Help:      "Fan-out source outcomes",
		},
		[]string{"source", "status"}, // ok / error / timeout / skipped
	)

	SourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "careatlas",
			Name:      "source_duration_seconds",
			Help:      "Fan-out source call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	RecordsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careatlas",
			Name:      "records_dropped_total",
			Help:      "Raw records dropped by normalization",
		},
		[]string{"source"},
	)

	PlacesCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careatlas",
			Name:      "places_cache_total",
			Help:      "Places cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careatlas",
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream API requests",
		},
		[]string{"provider", "endpoint", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "careatlas",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		},
		[]string{"provider", "endpoint"},
	)

	AnalyticsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "careatlas",
			Name:      "analytics_events_dropped_total",
			Help:      "Analytics events dropped because the queue was full or the sink failed",
		},
	)
)

var registerOnce sync.Once

// RegisterSearchMetrics registers the HTTP and search pipeline metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			httpInFlight,
			SearchesTotal,
			SearchResults,
			SourceOutcomesTotal,
			SourceDuration,
			RecordsDroppedTotal,
			PlacesCacheTotal,
			UpstreamRequestsTotal,
			UpstreamRequestDuration,
			AnalyticsDroppedTotal,
		)
	})
}
