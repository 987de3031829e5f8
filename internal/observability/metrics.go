// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmcast_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farmcast_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// UpstreamRequests counts calls to third-party providers by provider, endpoint and outcome.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmcast_upstream_requests_total",
		Help: "Calls to weather and geocoding providers",
	}, []string{"provider", "endpoint", "outcome"})

	// UpstreamLatency records provider call latency.
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farmcast_upstream_latency_seconds",
		Help:    "Latency of calls to weather and geocoding providers",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "endpoint"})

	// WeatherCacheLookups counts weather cache hits and misses.
	WeatherCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmcast_weather_cache_lookups_total",
		Help: "Weather cache lookups by result",
	}, []string{"result"})

	// PushSends counts push notification deliveries by kind (single, multicast) and outcome.
	PushSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmcast_push_sends_total",
		Help: "Push notification sends by kind and outcome",
	}, []string{"kind", "outcome"})

	// PushFailedTokens counts device tokens rejected by the push provider.
	PushFailedTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farmcast_push_failed_tokens_total",
		Help: "Device tokens that failed during multicast delivery",
	})

	// AlertRuns counts daily alert job runs and per-farm outcomes.
	AlertRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farmcast_alert_farms_total",
		Help: "Farms processed by the daily weather alert job by outcome",
	}, []string{"outcome"})

	// AlertJobDuration records how long a full alert job run takes.
	AlertJobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "farmcast_alert_job_duration_seconds",
		Help:    "Duration of the daily weather alert job",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
)

// ObserveUpstream records the outcome and latency of one provider call.
func ObserveUpstream(provider, endpoint, outcome string, start time.Time) {
	UpstreamRequests.WithLabelValues(provider, endpoint, outcome).Inc()
	UpstreamLatency.WithLabelValues(provider, endpoint).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
