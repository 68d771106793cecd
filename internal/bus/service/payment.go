package service

import (
	"context"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
	audit "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/requestcontext"
)

// UpdatePaymentStatus moves a rider's entry to the given payment status.
// Marking paid stamps PaidAt and the type-derived ExpiresAt; any other
// status clears both timestamps. Operator workflow only, there is no
// payment gateway behind this.
func (s *Service) UpdatePaymentStatus(ctx context.Context, riderID id.RiderID, busID id.BusID, status models.PaymentStatus) (*models.RiderEntry, error) {
	ctx, span := s.startSpan(ctx, "subscription.UpdatePaymentStatus", busID, riderID)
	defer span.End()

	if !status.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown payment status %q", string(status))
	}

	now := requestcontext.Now(ctx)
	var updated *models.RiderEntry
	_, err := s.updateBus(ctx, busID, func(bus *models.BusAggregate) (bool, error) {
		idx, err := findEntry(bus, riderID)
		if err != nil {
			return false, err
		}
		entry := &bus.Riders[idx]
		if status == models.PaymentPaid {
			if err := entry.MarkPaid(now); err != nil {
				return false, err
			}
		} else {
			entry.ApplyPaymentStatus(status)
		}
		updated = entry
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.EventPaymentUpdated, busID, updated, requestcontext.AdminID(ctx), string(status))
	if s.metrics != nil {
		s.metrics.PaymentUpdated.WithLabelValues(string(status)).Inc()
	}

	result := *updated
	return &result, nil
}
