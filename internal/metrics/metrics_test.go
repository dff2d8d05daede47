package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	method := "GET"
	path := "/api/bookings"
	status := "200"
	duration := 0.5

	RecordHTTPRequest(method, path, status, duration)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(method, path, status))
	assert.Equal(t, float64(1), count)

	// Histogram observations go through the same labels without panicking.
	metric := HTTPRequestDuration.WithLabelValues(method, path).(prometheus.Histogram)
	metric.Observe(duration)
}

func TestRecordHTTPRequestMultiple(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/api/auth/login", "200", 0.1)
	RecordHTTPRequest("POST", "/api/auth/login", "200", 0.2)
	RecordHTTPRequest("POST", "/api/auth/login", "401", 0.05)

	successCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/auth/login", "200"))
	failCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/auth/login", "401"))

	assert.Equal(t, float64(2), successCount)
	assert.Equal(t, float64(1), failCount)
}

func TestRecordBooking(t *testing.T) {
	BookingsTotal.Reset()

	RecordBooking("requested")

	count := testutil.ToFloat64(BookingsTotal.WithLabelValues("requested"))
	assert.Equal(t, float64(1), count)
}

func TestRecordBookingTransition(t *testing.T) {
	BookingTransitionsTotal.Reset()

	RecordBookingTransition("requested", "approved")
	RecordBookingTransition("requested", "approved")
	RecordBookingTransition("approved", "waiting_for_payment")

	approvedCount := testutil.ToFloat64(BookingTransitionsTotal.WithLabelValues("requested", "approved"))
	paymentCount := testutil.ToFloat64(BookingTransitionsTotal.WithLabelValues("approved", "waiting_for_payment"))

	assert.Equal(t, float64(2), approvedCount)
	assert.Equal(t, float64(1), paymentCount)
}

func TestRecordLedgerTransaction(t *testing.T) {
	LedgerTransactionsTotal.Reset()

	RecordLedgerTransaction("payment_lock")
	RecordLedgerTransaction("payment_lock")
	RecordLedgerTransaction("refund")

	lockCount := testutil.ToFloat64(LedgerTransactionsTotal.WithLabelValues("payment_lock"))
	refundCount := testutil.ToFloat64(LedgerTransactionsTotal.WithLabelValues("refund"))

	assert.Equal(t, float64(2), lockCount)
	assert.Equal(t, float64(1), refundCount)
}

func TestRecordDispute(t *testing.T) {
	DisputesTotal.Reset()

	RecordDispute("raised")
	RecordDispute("resolved_refund")

	raisedCount := testutil.ToFloat64(DisputesTotal.WithLabelValues("raised"))
	resolvedCount := testutil.ToFloat64(DisputesTotal.WithLabelValues("resolved_refund"))

	assert.Equal(t, float64(1), raisedCount)
	assert.Equal(t, float64(1), resolvedCount)
}

func TestRecordEvent(t *testing.T) {
	EventsQueuedTotal.Reset()

	RecordEvent("BOOKING_CONFIRMED")
	RecordEvent("BOOKING_CONFIRMED")
	RecordEvent("DISPUTE_RAISED")

	confirmedCount := testutil.ToFloat64(EventsQueuedTotal.WithLabelValues("BOOKING_CONFIRMED"))
	disputeCount := testutil.ToFloat64(EventsQueuedTotal.WithLabelValues("DISPUTE_RAISED"))

	assert.Equal(t, float64(2), confirmedCount)
	assert.Equal(t, float64(1), disputeCount)
}

func TestEventQueueLength(t *testing.T) {
	EventQueueLength.Set(10)
	value := testutil.ToFloat64(EventQueueLength)
	assert.Equal(t, float64(10), value)

	EventQueueLength.Set(5)
	value = testutil.ToFloat64(EventQueueLength)
	assert.Equal(t, float64(5), value)

	EventQueueLength.Set(0)
	value = testutil.ToFloat64(EventQueueLength)
	assert.Equal(t, float64(0), value)
}

func TestRecordSweepError(t *testing.T) {
	// Swap in a fresh counter so parallel sweeper tests cannot skew the count.
	testCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorslot_sweep_errors_total_test",
			Help: "Total number of errors during sweeper passes",
		},
	)

	oldCounter := SweepErrorsTotal
	SweepErrorsTotal = testCounter
	defer func() { SweepErrorsTotal = oldCounter }()

	RecordSweepError()
	RecordSweepError()

	count := testutil.ToFloat64(testCounter)
	assert.Equal(t, float64(2), count)
}

func TestRecordSweep(t *testing.T) {
	testHistogram := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tutorslot_sweep_duration_seconds_test",
			Help:    "Duration of one sweeper pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	oldHistogram := SweepDuration
	SweepDuration = testHistogram
	defer func() { SweepDuration = oldHistogram }()

	RecordSweep(250 * time.Millisecond)
	RecordSweep(100 * time.Millisecond)

	count := testutil.CollectAndCount(testHistogram)
	assert.Equal(t, 1, count)
}

func TestMetricsIntegration(t *testing.T) {
	HTTPRequestsTotal.Reset()
	BookingsTotal.Reset()
	LedgerTransactionsTotal.Reset()
	EventsQueuedTotal.Reset()

	// One booking request moving money and emitting a notification.
	RecordHTTPRequest("POST", "/api/bookings", "201", 0.25)
	RecordBooking("requested")
	RecordLedgerTransaction("payment_lock")
	RecordEvent("BOOKING_REQUESTED")

	httpCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/bookings", "201"))
	bookingCount := testutil.ToFloat64(BookingsTotal.WithLabelValues("requested"))
	ledgerCount := testutil.ToFloat64(LedgerTransactionsTotal.WithLabelValues("payment_lock"))
	eventCount := testutil.ToFloat64(EventsQueuedTotal.WithLabelValues("BOOKING_REQUESTED"))

	assert.Equal(t, float64(1), httpCount)
	assert.Equal(t, float64(1), bookingCount)
	assert.Equal(t, float64(1), ledgerCount)
	assert.Equal(t, float64(1), eventCount)
}
