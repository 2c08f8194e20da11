package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// EmbeddingRequestsTotal counts embedding API calls by outcome.
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docrag",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding API requests",
		},
		[]string{"model", "status"},
	)

	// EmbeddingCacheTotal counts embedding cache lookups by result.
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docrag",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result (hit/miss)",
		},
		[]string{"result"},
	)

	// QueryOutcomesTotal counts /query results by error code ("OK" on success).
	QueryOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docrag",
			Name:      "query_outcomes_total",
			Help:      "Query outcomes by result code",
		},
		[]string{"code"},
	)
)

// RegisterServiceMetrics registers non-HTTP metrics explicitly (no init()).
func RegisterServiceMetrics() {
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(QueryOutcomesTotal)
}
