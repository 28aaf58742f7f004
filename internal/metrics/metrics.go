package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the frontend server.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts browser-facing requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records browser-facing request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// UpstreamRequests counts tracking-backend calls by operation and outcome.
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "upstream_requests_total", Help: "Tracking backend requests by operation and outcome."},
		[]string{"op", "outcome"},
	)
	// UpstreamDuration tracks tracking-backend call latency in seconds.
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "upstream_request_duration_seconds", Help: "Tracking backend request duration in seconds.", Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10}},
		[]string{"op"},
	)

	// RouteCacheReads counts route store reads by source (cache, fetch, mirror).
	RouteCacheReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_cache_reads_total", Help: "Route store reads by source (cache, fetch, mirror)."},
		[]string{"source"},
	)
	// StaleDiscards counts late responses dropped by issue-order application.
	StaleDiscards = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "route_cache_stale_discards_total", Help: "Late route responses discarded as stale."},
	)
	// PollActiveKeys reports how many route keys the poller currently refreshes.
	PollActiveKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "poll_active_keys", Help: "Route keys in the active polling window."},
	)
)

// RegisterDefault registers all collectors on the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(UpstreamRequests)
		Registry.MustRegister(UpstreamDuration)
		Registry.MustRegister(RouteCacheReads)
		Registry.MustRegister(StaleDiscards)
		Registry.MustRegister(PollActiveKeys)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
