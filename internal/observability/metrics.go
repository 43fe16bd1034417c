// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SwapTransitions counts swap lifecycle transitions by target status.
	SwapTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_swap_transitions_total",
		Help: "Total number of swap lifecycle transitions by target status",
	}, []string{"to"})

	// CascadeCancelledSwaps counts pending swaps cancelled because a participant was banned.
	CascadeCancelledSwaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skillswap_cascade_cancelled_swaps_total",
		Help: "Total number of pending swaps cancelled by account bans",
	})

	// FeedbackSubmitted counts feedback entries by rating.
	FeedbackSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_feedback_submitted_total",
		Help: "Total number of feedback entries by rating",
	}, []string{"rating"})

	// RatingRecomputeLatency records how long a full rating recompute takes.
	RatingRecomputeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "skillswap_rating_recompute_seconds",
		Help:    "Rating recompute latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// CacheLookups counts profile cache lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_cache_lookups_total",
		Help: "Total number of cache lookups by result",
	}, []string{"cache", "result"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// NotificationsPublished counts pub/sub notifications by event type.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_notifications_published_total",
		Help: "Total number of notifications published by event type",
	}, []string{"event_type"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skillswap_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// ObserveSince records the elapsed time since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
