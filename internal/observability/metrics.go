package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "bookings_confirmed_total", Help: "Total confirmed bookings"})
	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "bookings_cancelled_total", Help: "Total cancelled bookings"})
	BookingsCompleted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "bookings_completed_total", Help: "Total completed trips"})
	DriversAvailable  = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_booking", Name: "drivers_available", Help: "Number of drivers free for assignment"})
	Suggestions       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "suggestions_total", Help: "Total geocoding suggestion lookups issued"})

	RouteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_booking", Name: "route_requests_total", Help: "Route resolutions by result"},
		[]string{"result"},
	)
	RouteLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_booking", Name: "route_latency_seconds", Help: "Routing service latency seconds"})

	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_booking", Name: "persistence_errors_total", Help: "Row store failures by operation"},
		[]string{"op"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_booking", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_booking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
