package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorslot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_bookings_total",
			Help: "Total number of booking requests created",
		},
		[]string{"status"},
	)

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_booking_transitions_total",
			Help: "Total number of booking state transitions",
		},
		[]string{"from", "to"},
	)

	LedgerTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_ledger_transactions_total",
			Help: "Total number of wallet ledger transactions",
		},
		[]string{"type"},
	)

	DisputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_disputes_total",
			Help: "Total number of dispute actions",
		},
		[]string{"action"},
	)

	EventsQueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_events_queued_total",
			Help: "Total number of notification events queued",
		},
		[]string{"type"},
	)

	EventQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tutorslot_event_queue_length",
			Help: "Current length of the notification event queue",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tutorslot_sweep_duration_seconds",
			Help:    "Duration of one sweeper pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	SweepErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorslot_sweep_errors_total",
			Help: "Total number of errors during sweeper passes",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status string) {
	BookingsTotal.WithLabelValues(status).Inc()
}

func RecordBookingTransition(from, to string) {
	BookingTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordLedgerTransaction(txType string) {
	LedgerTransactionsTotal.WithLabelValues(txType).Inc()
}

func RecordDispute(action string) {
	DisputesTotal.WithLabelValues(action).Inc()
}

func RecordEvent(eventType string) {
	EventsQueuedTotal.WithLabelValues(eventType).Inc()
}

func RecordSweep(d time.Duration) {
	SweepDuration.Observe(d.Seconds())
}

func RecordSweepError() {
	SweepErrorsTotal.Inc()
}
