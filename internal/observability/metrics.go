package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	cacheLookupsTotal     *prometheus.CounterVec
	cacheEvictionsTotal   *prometheus.CounterVec
	eventsPublishedTotal  *prometheus.CounterVec
	eventsReceivedTotal   *prometheus.CounterVec
	roomFeedClientsActive prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors exposed on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		cacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Result cache lookups by namespace and outcome.",
		}, []string{"namespace", "result"})

		cacheEvictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Result cache evictions by namespace and scope.",
		}, []string{"namespace", "scope"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "message_events_published_total",
			Help: "Message events handed to the broker.",
		}, []string{"action", "status"})

		eventsReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "message_events_received_total",
			Help: "Message events consumed by the listener.",
		}, []string{"action"})

		roomFeedClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "room_feed_clients_active",
			Help: "Live room feed subscribers currently connected.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			httpErrorsTotal,
			cacheLookupsTotal,
			cacheEvictionsTotal,
			eventsPublishedTotal,
			eventsReceivedTotal,
			roomFeedClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpRequestDuration
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// CacheLookups exposes the hit/miss counter of the result cache.
func CacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return cacheLookupsTotal
}

// CacheEvictions exposes the eviction counter of the result cache.
func CacheEvictions() *prometheus.CounterVec {
	RegisterMetrics()
	return cacheEvictionsTotal
}

// EventsPublished exposes the counter of published message events.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// EventsReceived exposes the counter of consumed message events.
func EventsReceived() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsReceivedTotal
}

// RoomFeedClients exposes the gauge of connected live feed subscribers.
func RoomFeedClients() prometheus.Gauge {
	RegisterMetrics()
	return roomFeedClientsActive
}
