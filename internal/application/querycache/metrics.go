package querycache

import "github.com/prometheus/client_golang/prometheus"

var (
	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_fetches_total",
			Help: "Settled resource fetches by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_retries_total",
			Help: "Retries performed by operation kind",
		},
		[]string{"resource", "kind"},
	)

	hitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_hits_total",
			Help: "Reads served from a fresh cached value",
		},
		[]string{"resource"},
	)

	evictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querycache_evictions_total",
			Help: "Entries removed after their GC window",
		},
	)

	discardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_discarded_responses_total",
			Help: "Responses dropped because a later-issued fetch already settled",
		},
		[]string{"resource"},
	)
)

func init() {
	prometheus.MustRegister(fetchesTotal, retriesTotal, hitsTotal, evictionsTotal, discardedTotal)
}
