package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsServedTotal    *prometheus.CounterVec
	requestDurationBuckets *prometheus.HistogramVec
	eventsIngestedTotal    prometheus.Counter
	venuesUpsertedTotal    prometheus.Counter
)

// InitPrometheusMetrics registers the serve-path metrics with the default
// registry. Call once at server startup, before the first request.
func InitPrometheusMetrics() {
	requestsServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trafficpulse",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests served.",
		},
		[]string{"route", "method", "status"},
	)
	requestDurationBuckets = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trafficpulse",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)
	eventsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trafficpulse",
			Name:      "events_ingested_total",
			Help:      "Total events accepted through the ingest endpoint.",
		},
	)
	venuesUpsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trafficpulse",
			Name:      "venues_upserted_total",
			Help:      "Total venue rows created or updated during ingest.",
		},
	)
	prometheus.MustRegister(requestsServedTotal, requestDurationBuckets,
		eventsIngestedTotal, venuesUpsertedTotal)
}
