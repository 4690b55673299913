package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// QueryDuration tracks end-to-end engine latency per execution mode.
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cutoffd",
			Name:      "query_duration_seconds",
			Help:      "Query engine execution duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"}, // single | scatter
	)

	// ShardFanout tracks how many shards a multi-shard query produced.
	ShardFanout = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cutoffd",
			Name:      "query_shard_fanout",
			Help:      "Number of shards per scatter-gather query",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16, 24, 32},
		},
	)

	// ShardQueriesTotal counts individual shard calls to the record store.
	ShardQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cutoffd",
			Name:      "shard_queries_total",
			Help:      "Record-store shard queries by outcome",
		},
		[]string{"status"}, // success | error
	)

	// ShardQueryDuration tracks a single shard call's latency.
	ShardQueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cutoffd",
			Name:      "shard_query_duration_seconds",
			Help:      "Record-store shard query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// QueryCacheTotal counts result-cache lookups.
	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cutoffd",
			Name:      "query_cache_total",
			Help:      "Result cache lookups by outcome",
		},
		[]string{"result"}, // hit | miss
	)

	// TruncatedTotal counts queries whose shard windows undercounted.
	TruncatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cutoffd",
			Name:      "query_truncated_total",
			Help:      "Queries where a shard exceeded its fetch window",
		},
	)
)

// RegisterQueryMetrics registers query-engine metrics explicitly (no init()).
func RegisterQueryMetrics() {
	prometheus.MustRegister(
		QueryDuration,
		ShardFanout,
		ShardQueriesTotal,
		ShardQueryDuration,
		QueryCacheTotal,
		TruncatedTotal,
	)
}
