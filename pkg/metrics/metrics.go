package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking
	AppointmentsBooked  prometheus.Counter
	BookingConflicts    prometheus.Counter
	RequestsApproved    prometheus.Counter
	RequestsRejected    prometheus.Counter
	SlotsComputed       prometheus.Histogram
	SlotQueryLatency    prometheus.Histogram
	TimelineBuilds      prometheus.Counter
	TimelineEventCounts prometheus.Histogram
	PlansAssigned       prometheus.Counter

	// Notification worker
	EmailsSent       *prometheus.CounterVec
	EmailsFailed     *prometheus.CounterVec
	RemindersSent    prometheus.Counter
	ReminderSweepDur prometheus.Histogram
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		AppointmentsBooked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_booked_total",
			Help:      "Total number of appointments booked",
		}),
		BookingConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Total number of bookings rejected because the slot was taken",
		}),
		RequestsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_requests_approved_total",
			Help:      "Total number of appointment requests approved",
		}),
		RequestsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_requests_rejected_total",
			Help:      "Total number of appointment requests rejected",
		}),
		SlotsComputed: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "available_slots_per_query",
			Help:      "Number of free slots returned per availability query",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		SlotQueryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slot_query_duration_seconds",
			Help:      "Time spent resolving available slots",
			Buckets:   prometheus.DefBuckets,
		}),
		TimelineBuilds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_builds_total",
			Help:      "Total number of patient timelines built",
		}),
		TimelineEventCounts: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "timeline_events_per_build",
			Help:      "Number of events per timeline build before grouping",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 250, 500},
		}),
		PlansAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "treatment_plans_assigned_total",
			Help:      "Total number of treatment plans assigned",
		}),
		EmailsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Total number of notification emails sent",
		}, []string{"kind"}),
		EmailsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Total number of notification emails that failed to send",
		}, []string{"kind"}),
		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of appointment reminders sent",
		}),
		ReminderSweepDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_sweep_duration_seconds",
			Help:      "Time spent per reminder sweep",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
