package sweep

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks sweep runs for operational monitoring; sweep errors are
// never user-visible, these counters and the logs are their only outlet.
type Metrics struct {
	Runs           prometheus.Counter
	RunFailures    prometheus.Counter
	BusesProcessed prometheus.Counter
	BusFailures    prometheus.Counter
	EntriesExpired prometheus.Counter
	RunDuration    prometheus.Histogram
	LockSkipped    prometheus.Counter
}

// NewMetrics registers all sweep metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_sweep_runs_total",
			Help: "Total number of sweep runs started",
		}),
		RunFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_sweep_run_failures_total",
			Help: "Total number of sweep runs that failed at the query step",
		}),
		BusesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_sweep_buses_processed_total",
			Help: "Total number of bus aggregates successfully processed",
		}),
		BusFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_sweep_bus_failures_total",
			Help: "Total number of per-bus failures isolated during sweeps",
		}),
		EntriesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_sweep_entries_expired_total",
			Help: "Total number of paid entries reverted to pending",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "buscollege_sweep_run_duration_seconds",
			Help:    "Wall-clock duration of sweep runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		LockSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "buscollege_sweep_lock_skips_total",
			Help: "Total number of scheduled runs skipped because another replica held the lease",
		}),
	}
}

// ObserveRun records one completed run.
func (m *Metrics) ObserveRun(start time.Time) {
	m.RunDuration.Observe(time.Since(start).Seconds())
}
