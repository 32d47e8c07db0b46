package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics tracks the booking funnel and the collaborators it calls.
// A nil *BookingMetrics is valid and records nothing.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	slotQueriesTotal   *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	calendarLatency    *prometheus.HistogramVec
	remindersTotal     prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autodetail",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking requests by outcome",
		}, []string{"outcome"}),
		slotQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autodetail",
			Subsystem: "booking",
			Name:      "slot_queries_total",
			Help:      "Available slot lookups by day kind",
		}, []string{"day_kind"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autodetail",
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Outbound notifications by channel and status",
		}, []string{"channel", "status"}),
		calendarLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "autodetail",
			Subsystem: "calendar",
			Name:      "request_duration_seconds",
			Help:      "Latency of calendar provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		remindersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "autodetail",
			Subsystem: "notify",
			Name:      "reminders_total",
			Help:      "Appointment reminders dispatched",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.slotQueriesTotal, m.notificationsTotal, m.calendarLatency, m.remindersTotal)
	return m
}

// ObserveBooking counts a booking attempt. outcome is "booked" or a rejection code.
func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveSlotQuery(dayKind string) {
	if m == nil {
		return
	}
	m.slotQueriesTotal.WithLabelValues(dayKind).Inc()
}

func (m *BookingMetrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(channel, status(err)).Inc()
}

func (m *BookingMetrics) ObserveCalendarCall(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.calendarLatency.WithLabelValues(operation, status(err)).Observe(seconds)
}

func (m *BookingMetrics) ObserveReminder() {
	if m == nil {
		return
	}
	m.remindersTotal.Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
