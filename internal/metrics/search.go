package metrics

import "github.com/prometheus/client_golang/prometheus"

// Invocation outcome label values.
const (
	OutcomeOK         = "ok"
	OutcomePartial    = "partial"
	OutcomeFailed     = "failed"
	OutcomeEmpty      = "empty"
	OutcomeSuperseded = "superseded"
)

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecdemo",
			Name:      "search_requests_total",
			Help:      "Total number of search service requests",
		},
		[]string{"index", "approach", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vecdemo",
			Name:      "search_request_duration_seconds",
			Help:      "Search service request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"index", "approach"},
	)

	SearchInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecdemo",
			Name:      "search_invocations_total",
			Help:      "Multi-approach search invocations by outcome",
		},
		[]string{"profile", "outcome"},
	)

	SearchApproachesPerInvocation = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vecdemo",
			Name:      "search_approaches_per_invocation",
			Help:      "Number of approaches fanned out per invocation",
			Buckets:   []float64{1, 2, 3, 4},
		},
		[]string{"profile"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(SearchInvocationsTotal)
	prometheus.MustRegister(SearchApproachesPerInvocation)
	searchMetricsRegistered = true
}
