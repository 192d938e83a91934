package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	// cacheReads counts typed reads by namespace and outcome.
	cacheReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubepay_cache_reads_total",
			Help: "Cache reads by namespace and result (hit, miss, degraded).",
		},
		[]string{"namespace", "result"},
	)

	// cacheErrors counts backend or codec failures by namespace and operation.
	cacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubepay_cache_errors_total",
			Help: "Cache failures absorbed by the cache layer.",
		},
		[]string{"namespace", "operation"},
	)

	cacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubepay_cache_invalidated_keys_total",
			Help: "Keys deleted by invalidation, by namespace.",
		},
		[]string{"namespace"},
	)

	rateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubepay_rate_limit_decisions_total",
			Help: "Rate limit decisions by action and outcome (allowed, rejected, fail_open).",
		},
		[]string{"action", "decision"},
	)
)

func init() {
	prometheus.MustRegister(cacheReads, cacheErrors, cacheInvalidations, rateLimitDecisions)
}
