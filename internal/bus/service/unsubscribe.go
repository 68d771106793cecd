package service

import (
	"context"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	audit "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/requestcontext"
)

// Unsubscribe ends a rider's association with the bus.
//
// Two branches with different retention:
//   - never paid (pending or unpaid): the entry is deleted outright with an
//     exact-value atomic remove, safe against concurrent writers
//   - paid: the entry is retained for history, marked inactive with
//     UnsubscribedAt, via a versioned whole-list write
func (s *Service) Unsubscribe(ctx context.Context, riderID id.RiderID, busID id.BusID) error {
	ctx, span := s.startSpan(ctx, "subscription.Unsubscribe", busID, riderID)
	defer span.End()

	bus, err := s.buses.GetBus(ctx, busID)
	if err != nil {
		return wrapBusErr(err)
	}
	idx, err := findEntry(bus, riderID)
	if err != nil {
		return err
	}
	entry := bus.Riders[idx]

	if entry.DeletableOnUnsubscribe() {
		if err := s.buses.AtomicRemoveRider(ctx, busID, entry); err != nil {
			return wrapBusErr(err)
		}
	} else {
		now := requestcontext.Now(ctx)
		_, err = s.updateBus(ctx, busID, func(bus *models.BusAggregate) (bool, error) {
			idx, err := findEntry(bus, riderID)
			if err != nil {
				return false, err
			}
			target := &bus.Riders[idx]
			if err := target.CanDeactivate(); err != nil {
				return false, err
			}
			target.ApplyDeactivation(now)
			return true, nil
		})
		if err != nil {
			return err
		}
	}

	s.auditEmitter.emit(ctx, audit.EventRiderUnsubscribed, busID, &entry, "", "")
	if s.metrics != nil {
		s.metrics.Unsubscribed.Inc()
	}
	return nil
}

// CancelPendingSubscription unconditionally deletes the rider's entry,
// whatever its payment status. This is "undo my subscription attempt", a
// different operation from Unsubscribe: it never keeps history, even for a
// paid entry. Both operations exist on purpose; see the product note in
// DESIGN.md before folding them together.
func (s *Service) CancelPendingSubscription(ctx context.Context, riderID id.RiderID, busID id.BusID) error {
	ctx, span := s.startSpan(ctx, "subscription.CancelPendingSubscription", busID, riderID)
	defer span.End()

	bus, err := s.buses.GetBus(ctx, busID)
	if err != nil {
		return wrapBusErr(err)
	}
	indexes := bus.EntriesFor(riderID)
	if len(indexes) == 0 {
		return findEntryMissing()
	}
	// Duplicates from a crashed subscribe get swept up too; each removal
	// targets one exact value and commutes with concurrent writers.
	for _, idx := range indexes {
		if err := s.buses.AtomicRemoveRider(ctx, busID, bus.Riders[idx]); err != nil {
			return wrapBusErr(err)
		}
	}

	first := bus.Riders[indexes[0]]
	s.auditEmitter.emit(ctx, audit.EventSubscriptionCancelled, busID, &first, "", "")
	if s.metrics != nil {
		s.metrics.Cancelled.Inc()
	}
	return nil
}

// AdminRemoveRider is the operator-privileged unconditional removal. The
// acting operator is recorded for audit.
func (s *Service) AdminRemoveRider(ctx context.Context, riderID id.RiderID, busID id.BusID, adminID id.AdminID) error {
	ctx, span := s.startSpan(ctx, "subscription.AdminRemoveRider", busID, riderID)
	defer span.End()

	bus, err := s.buses.GetBus(ctx, busID)
	if err != nil {
		return wrapBusErr(err)
	}
	indexes := bus.EntriesFor(riderID)
	if len(indexes) == 0 {
		return findEntryMissing()
	}
	for _, idx := range indexes {
		if err := s.buses.AtomicRemoveRider(ctx, busID, bus.Riders[idx]); err != nil {
			return wrapBusErr(err)
		}
	}

	first := bus.Riders[indexes[0]]
	s.auditEmitter.emit(ctx, audit.EventAdminRemovedRider, busID, &first, adminID, "")
	if s.metrics != nil {
		s.metrics.AdminRemoved.Inc()
	}
	s.logger.InfoContext(ctx, "operator removed rider from bus",
		"bus_id", busID,
		"rider_id", riderID,
		"admin_id", adminID,
		"entries_removed", len(indexes),
	)
	return nil
}
