// Package metrics holds the Prometheus collectors of the booking core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hold and confirm outcomes used as the "result" label.
const (
	ResultOK          = "ok"
	ResultUnavailable = "unavailable"
	ResultInvalid     = "invalid"
	ResultExpired     = "expired"
	ResultError       = "error"
)

var (
	HoldsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_holds_total",
		Help: "Hold attempts by result",
	}, []string{"result"})

	HoldRollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_hold_rollbacks_total",
		Help: "Holds rolled back after losing a seat race",
	})

	LazyReleasedSeatsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_lazy_released_seats_total",
		Help: "Seats released at hold time because their holder had expired",
	})

	ConfirmsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_confirms_total",
		Help: "Confirm attempts by result",
	}, []string{"result"})

	ReaperReleasedSeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_reaper_released_seats_total",
		Help: "Seats released by the reaper by sweep",
	}, []string{"sweep"})

	ReaperFailedBookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_reaper_failed_bookings_total",
		Help: "PENDING bookings failed after their hold expired",
	})

	ReaperSweepDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name:       "booking_reaper_sweep_duration_seconds",
		Help:       "Duration of one reaper pass",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
