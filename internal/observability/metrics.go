package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: "bidzi", Name: "bookings_created_total", Help: "Ride bookings created"})
	RidesConfirmed  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "bidzi", Name: "rides_confirmed_total", Help: "Bookings confirmed with a driver"})

	DispatchDrivers = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bidzi",
		Name:      "dispatch_drivers_contacted",
		Help:      "Drivers contacted per fan-out",
		Buckets:   []float64{0, 1, 2, 5, 10, 15, 20, 25},
	})
	DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "bidzi", Name: "dispatch_driver_failures_total", Help: "Per-driver dispatch insert failures"})

	CountersSubmitted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "bidzi", Name: "counter_offers_submitted_total", Help: "Counter offers submitted"})
	CountersResolved  = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bidzi", Name: "counter_offers_resolved_total", Help: "Counter offers resolved by terminal status"},
		[]string{"status"},
	)
	CountersExpired = promauto.NewCounter(prometheus.CounterOpts{Namespace: "bidzi", Name: "counter_offers_expired_total", Help: "Counter offers expired by the sweep"})
)
