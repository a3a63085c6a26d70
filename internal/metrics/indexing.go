package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing Prometheus metrics.
var (
	IndexedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_documents_total",
			Help:      "Documents seen by indexing runs, by outcome",
		},
		[]string{"source", "outcome"},
	)

	IndexedChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_chunks_total",
			Help:      "Chunks written to the index",
		},
		[]string{"source", "strategy"},
	)

	IndexRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_run_duration_seconds",
			Help:      "Duration of one indexing run over a source",
			Buckets:   []float64{0.1, 1, 5, 30, 60, 300, 900, 3600},
		},
		[]string{"source"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search queries",
		},
		[]string{"source", "status"},
	)
)

var indexingMetricsRegistered bool

// RegisterIndexingMetrics registers indexing and search metrics. Safe to call repeatedly.
func RegisterIndexingMetrics() {
	if indexingMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexedDocumentsTotal)
	prometheus.MustRegister(IndexedChunksTotal)
	prometheus.MustRegister(IndexRunDuration)
	prometheus.MustRegister(SearchRequestsTotal)
	indexingMetricsRegistered = true
}
