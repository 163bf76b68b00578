package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingAdmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "therapy",
			Name:      "booking_admitted_total",
			Help:      "Count of admitted appointments by type.",
		},
		[]string{"type"},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "therapy",
			Name:      "booking_rejected_total",
			Help:      "Count of booking requests rejected by validation, by reason.",
		},
		[]string{"reason"},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "therapy",
			Name:      "booking_conflicts_total",
			Help:      "Count of bookings lost to a concurrent request (lock contention or unique index).",
		},
		[]string{"kind"},
	)

	availabilityQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "therapy",
			Name:      "availability_queries_total",
			Help:      "Count of open-slot queries by whether the therapist works that day.",
		},
		[]string{"available"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "therapy",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingAdmitted, bookingRejected, bookingConflicts, availabilityQueries, httpDuration)
	})
}

func IncBookingAdmitted(appointmentType string) {
	bookingAdmitted.WithLabelValues(appointmentType).Inc()
}

func IncBookingRejected(reason string) {
	bookingRejected.WithLabelValues(reason).Inc()
}

func IncBookingConflict(kind string) {
	bookingConflicts.WithLabelValues(kind).Inc()
}

func IncAvailabilityQuery(available bool) {
	availabilityQueries.WithLabelValues(strconv.FormatBool(available)).Inc()
}

func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
