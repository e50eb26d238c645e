// Package metrics exposes Prometheus counters for the booking core.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carebook",
			Name:      "slots_generated_total",
			Help:      "Count of slot-generation requests by cache outcome.",
		},
		[]string{"cache"},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carebook",
			Name:      "availability_checks_total",
			Help:      "Count of exact-instant availability checks by result.",
		},
		[]string{"result"},
	)

	bookingMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carebook",
			Name:      "booking_mutations_total",
			Help:      "Count of guarded booking mutations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carebook",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by method, path and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carebook",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and path.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(slotsGenerated, availabilityChecks, bookingMutations, httpRequests, httpDuration)
	})
}

func IncSlotsGenerated(cacheOutcome string) {
	slotsGenerated.WithLabelValues(cacheOutcome).Inc()
}

func IncAvailabilityCheck(result string) {
	availabilityChecks.WithLabelValues(result).Inc()
}

func IncBookingMutation(operation, outcome string) {
	bookingMutations.WithLabelValues(operation, outcome).Inc()
}

func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
