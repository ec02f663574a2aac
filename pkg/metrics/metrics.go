package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Appointment workflow
	StatusTransitions *prometheus.CounterVec
	Handoffs          *prometheus.CounterVec

	// Templates and reminders
	TemplateDispatches *prometheus.CounterVec
	RemindersSent      prometheus.Counter
	ReminderRunLatency prometheus.Histogram

	// Collection store
	StoreOperations *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec
	StoreConflicts  *prometheus.CounterVec
	ChangeEvents    *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil reg registers with the default prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_status_transitions_total",
			Help:      "Total number of applied appointment status transitions",
		}, []string{"from", "to"}),
		Handoffs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messaging_handoffs_total",
			Help:      "Total number of messaging hand-off links built",
		}, []string{"result"}),

		TemplateDispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_dispatches_total",
			Help:      "Total number of notification template dispatches",
		}, []string{"channel", "result"}),
		RemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of appointment reminders dispatched",
		}),
		ReminderRunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_run_duration_seconds",
			Help:      "Time spent in one reminder scan",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),

		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of collection store operations",
		}, []string{"backend", "operation", "status"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of collection store operations",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"backend", "operation"}),
		StoreConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_version_conflicts_total",
			Help:      "Total number of optimistic concurrency conflicts",
		}, []string{"key"}),
		ChangeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_change_events_total",
			Help:      "Total number of collection change events published",
		}, []string{"key"}),
	}
}

// NewNop returns metrics registered on a throwaway registry.
func NewNop() *Metrics {
	return NewMetrics("nop", prometheus.NewRegistry())
}
