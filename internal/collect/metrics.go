package collect

import "github.com/prometheus/client_golang/prometheus"

var (
	apiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trafficpulse",
			Name:      "vendor_api_calls_total",
			Help:      "Total vendor traffic API calls made.",
		},
		[]string{"kind"},
	)
	measurementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trafficpulse",
			Name:      "measurements_total",
			Help:      "Total traffic measurements stored.",
		},
		[]string{"kind"},
	)
	collectionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trafficpulse",
			Name:      "collection_failures_total",
			Help:      "Per-item vendor or store failures skipped during collection runs.",
		},
		[]string{"kind", "stage"},
	)
)

// RegisterMetrics registers the collection counters with the default
// prometheus registry. Call once at startup.
func RegisterMetrics() {
	prometheus.MustRegister(apiCallsTotal, measurementsTotal, collectionFailures)
}
