// Package service implements the rider subscription lifecycle against the
// bus document store.
//
// Consistency model: the bus aggregate is the unit of consistency. Exact-
// value list operations (used where an entry is removed as-is) commute under
// concurrent writers. Every read-modify-write goes through a versioned
// compare-and-swap with a bounded retry loop, so a concurrent writer makes
// the update retry instead of being silently overwritten.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/code"
	busmetrics "github.com/brahimakil/buscollege-mobile-sub000/internal/bus/metrics"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/store"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/sentinel"
)

// casRetries bounds how many times a versioned write is retried after
// losing a race. Contention on one bus is a handful of riders, not a
// thundering herd, so a small number suffices.
const casRetries = 3

// Service orchestrates the rider subscription lifecycle.
type Service struct {
	buses        store.Store
	codes        *code.Issuer
	auditEmitter *auditEmitter
	metrics      *busmetrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

// Option configures optional service dependencies.
type Option func(*serviceConfig)

type serviceConfig struct {
	auditPublisher AuditPublisher
	metrics        *busmetrics.Metrics
	logger         *slog.Logger
}

// WithAuditPublisher wires an audit sink for lifecycle events.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(cfg *serviceConfig) {
		cfg.auditPublisher = publisher
	}
}

// WithMetrics wires prometheus metrics.
func WithMetrics(m *busmetrics.Metrics) Option {
	return func(cfg *serviceConfig) {
		cfg.metrics = m
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *serviceConfig) {
		cfg.logger = logger
	}
}

// New constructs the subscription service.
func New(buses store.Store, codes *code.Issuer, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		buses:        buses,
		codes:        codes,
		auditEmitter: newAuditEmitter(logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
		logger:       logger,
		tracer:       otel.Tracer("buscollege/subscription"),
	}
}

// updateBus runs one read-decide-write cycle with a versioned write,
// retrying a bounded number of times when a concurrent writer bumps the
// version in between. mutate sees a private clone and returns whether the
// aggregate changed; unchanged aggregates are not written.
func (s *Service) updateBus(ctx context.Context, busID id.BusID, mutate func(*models.BusAggregate) (bool, error)) (*models.BusAggregate, error) {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		bus, err := s.buses.GetBus(ctx, busID)
		if err != nil {
			return nil, wrapBusErr(err)
		}
		changed, err := mutate(bus)
		if err != nil {
			return nil, err
		}
		if !changed {
			return bus, nil
		}
		err = s.buses.ReplaceRiders(ctx, busID, bus.Riders, bus.Version)
		if err == nil {
			return bus, nil
		}
		if !errors.Is(err, sentinel.ErrVersionConflict) {
			return nil, wrapBusErr(err)
		}
		if s.metrics != nil {
			s.metrics.WriteConflicts.Inc()
		}
		lastErr = err
	}
	return nil, dErrors.Wrap(lastErr, dErrors.CodeConflict, "bus is being updated concurrently, try again")
}

func (s *Service) startSpan(ctx context.Context, name string, busID id.BusID, riderID id.RiderID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("bus.id", busID.String()),
		attribute.String("rider.id", riderID.String()),
	))
}

func (s *Service) observeSubscribe(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSubscribe(start)
	}
}

// wrapBusErr translates store sentinels into coded domain errors.
func wrapBusErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "bus not found")
	case errors.Is(err, sentinel.ErrVersionConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "bus is being updated concurrently, try again")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "bus store is unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "bus store failure")
	}
}

// findEntry locates a rider's entry or reports NotFound in domain terms.
func findEntry(bus *models.BusAggregate, riderID id.RiderID) (int, error) {
	idx := bus.FindRider(riderID)
	if idx < 0 {
		return -1, findEntryMissing()
	}
	return idx, nil
}

func findEntryMissing() error {
	return dErrors.New(dErrors.CodeNotFound, "rider has no subscription on this bus")
}
