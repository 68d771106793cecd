package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the subscription module.
// Tracks lifecycle counts and critical path durations.
type Metrics struct {
	Subscribed        prometheus.Counter
	Unsubscribed      prometheus.Counter
	Cancelled         prometheus.Counter
	AdminRemoved      prometheus.Counter
	PaymentUpdated    *prometheus.CounterVec
	CapacityRejected  prometheus.Counter
	WriteConflicts    prometheus.Counter
	SubscribeDuration prometheus.Histogram
}

// New creates a Metrics instance with all subscription module metrics registered.
func New() *Metrics {
	return &Metrics{
		Subscribed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_subscriptions_created_total",
			Help: "Total number of rider subscriptions created",
		}),
		Unsubscribed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_unsubscribes_total",
			Help: "Total number of rider-initiated unsubscribes",
		}),
		Cancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_subscription_cancellations_total",
			Help: "Total number of pending-subscription cancellations",
		}),
		AdminRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_admin_removals_total",
			Help: "Total number of operator-initiated rider removals",
		}),
		PaymentUpdated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "buscollege_payment_updates_total",
			Help: "Total number of payment status updates by target status",
		}, []string{"status"}),
		CapacityRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_capacity_rejections_total",
			Help: "Total number of subscribe attempts rejected for capacity",
		}),
		WriteConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_write_conflicts_total",
			Help: "Total number of versioned writes that lost a race and were retried",
		}),
		SubscribeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "buscollege_subscribe_duration_seconds",
			Help:    "Duration of Subscribe operations (rider-facing critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveSubscribe records the duration of a Subscribe operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubscribe(start time.Time) {
	m.SubscribeDuration.Observe(time.Since(start).Seconds())
}
