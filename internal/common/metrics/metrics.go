// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AIQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_queries_total",
			Help: "Total number of AI queries by terminal state",
		},
		[]string{"outcome"}, // answered, rejected, failed
	)

	AIQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ai_query_duration_seconds",
			Help: "End-to-end duration of AI query handling in seconds",
		},
		[]string{"outcome"},
	)

	AIQueryStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ai_query_stage_duration_seconds",
			Help: "Duration of individual pipeline stages in seconds",
		},
		[]string{"stage"}, // generate, execute, compose
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_cache_requests_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	GenerationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_generation_rejections_total",
			Help: "SQL candidates rejected by the validator or post-checks",
		},
		[]string{"reason"},
	)

	RateLimitDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_rate_limit_drops_total",
			Help: "Requests dropped by the fixed-window rate limiter",
		},
		[]string{"route"},
	)
)
