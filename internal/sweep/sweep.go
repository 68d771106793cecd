// Package sweep implements the scheduled TTL expiration pass over all bus
// aggregates.
//
// A run loads every bus with a non-empty rider list, partitions them into
// fixed-size batches, and processes batches in parallel with a bounded
// fan-out. Per-bus failures are counted and isolated; only a failure of the
// initial query is fatal to a run. A run is idempotent: re-expiring an
// already-pending entry changes nothing, so overlapping or repeated runs
// are safe.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/store"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
	audit "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/sentinel"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/requestcontext"
)

// AuditPublisher is the slice of the audit publisher the sweeper needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Defaults. The batch size mirrors the store's maximum atomic-write-set
// size; the fan-out keeps a big fleet from hammering the store.
const (
	DefaultBatchSize   = 500
	DefaultConcurrency = 8

	// writeAttempts bounds retries of one bus's write. Version conflicts
	// re-read and re-decide; transient store outages back off first.
	writeAttempts  = 3
	initialBackoff = 100 * time.Millisecond
)

// Stats are one run's outcome, surfaced to the scheduler and the manual
// trigger endpoint.
type Stats struct {
	// Considered is how many aggregates the initial query returned.
	Considered int `json:"considered"`
	// Processed is how many aggregates were handled without error,
	// including ones that needed no write.
	Processed int `json:"processed"`
	// Expired is how many entries reverted from paid to pending.
	Expired int `json:"expired"`
	// Failed is how many aggregates hit an isolated failure.
	Failed int `json:"failed"`
}

// Sweeper runs expiration passes against the bus store.
type Sweeper struct {
	buses       store.Store
	logger      *slog.Logger
	metrics     *Metrics
	publisher   AuditPublisher
	batchSize   int
	concurrency int
	tracer      trace.Tracer
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithBatchSize overrides the batch partition size.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithConcurrency overrides the bounded fan-out width.
func WithConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMetrics wires prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// WithAuditPublisher records a sweep_completed event per run.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Sweeper) {
		s.publisher = p
	}
}

// New constructs a Sweeper.
func New(buses store.Store, logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		buses:       buses,
		logger:      logger,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		tracer:      otel.Tracer("buscollege/sweep"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one expiration pass. The caller bounds the run with a
// context deadline; buses not reached before it expires are left for the
// next scheduled run. The returned error is non-nil only when the initial
// query fails; per-bus failures land in Stats.Failed.
func (s *Sweeper) Run(ctx context.Context) (Stats, error) {
	ctx, span := s.tracer.Start(ctx, "sweep.Run")
	defer span.End()
	start := time.Now()
	// One clock reading for the whole run keeps the expiration decision
	// consistent across batches.
	now := requestcontext.Now(ctx)

	if s.metrics != nil {
		s.metrics.Runs.Inc()
	}

	buses, err := s.buses.ListBusesWithRiders(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RunFailures.Inc()
		}
		return Stats{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "sweep query failed")
	}

	var processed, expired, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, batch := range partition(buses, s.batchSize) {
		g.Go(func() error {
			for _, bus := range batch {
				if ctx.Err() != nil {
					// Budget exhausted; the rest self-heals next run.
					return nil
				}
				count, err := s.processBus(ctx, bus, now)
				if err != nil {
					failed.Add(1)
					s.logger.ErrorContext(ctx, "sweep failed for bus",
						"bus_id", bus.ID,
						"error", err,
					)
					continue
				}
				processed.Add(1)
				expired.Add(int64(count))
			}
			return nil
		})
	}
	// Batch goroutines never return errors; failures are counted instead.
	_ = g.Wait()

	stats := Stats{
		Considered: len(buses),
		Processed:  int(processed.Load()),
		Expired:    int(expired.Load()),
		Failed:     int(failed.Load()),
	}
	span.SetAttributes(
		attribute.Int("sweep.considered", stats.Considered),
		attribute.Int("sweep.expired", stats.Expired),
		attribute.Int("sweep.failed", stats.Failed),
	)
	if s.metrics != nil {
		s.metrics.BusesProcessed.Add(float64(stats.Processed))
		s.metrics.BusFailures.Add(float64(stats.Failed))
		s.metrics.EntriesExpired.Add(float64(stats.Expired))
		s.metrics.ObserveRun(start)
	}
	if s.publisher != nil {
		err := s.publisher.Emit(ctx, audit.Event{
			Action:    string(audit.EventSweepCompleted),
			Timestamp: now,
			RequestID: requestcontext.RequestID(ctx),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to record sweep audit event", "error", err)
		}
	}
	s.logger.InfoContext(ctx, "sweep completed",
		"considered", stats.Considered,
		"processed", stats.Processed,
		"expired", stats.Expired,
		"failed", stats.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

// processBus applies the expiration rule to one aggregate and writes the
// whole rider list back only when something changed. A version conflict
// re-reads and re-decides; a transient outage backs off before retrying.
func (s *Sweeper) processBus(ctx context.Context, bus *models.BusAggregate, now time.Time) (int, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		expired := bus.ExpireDue(now)
		if expired == 0 {
			return 0, nil
		}
		err := s.buses.ReplaceRiders(ctx, bus.ID, bus.Riders, bus.Version)
		if err == nil {
			return expired, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, sentinel.ErrVersionConflict):
			// Someone wrote in between; re-read and re-decide.
		case errors.Is(err, sentinel.ErrUnavailable):
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			backoff *= 2
		default:
			return 0, err
		}

		fresh, err := s.buses.GetBus(ctx, bus.ID)
		if err != nil {
			return 0, err
		}
		bus = fresh
	}
	return 0, lastErr
}

func partition(buses []*models.BusAggregate, size int) [][]*models.BusAggregate {
	var batches [][]*models.BusAggregate
	for start := 0; start < len(buses); start += size {
		end := min(start+size, len(buses))
		batches = append(batches, buses[start:end])
	}
	return batches
}
