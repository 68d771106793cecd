package service

import (
	"context"
	"time"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
	audit "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/requestcontext"
)

// SubscribeRequest carries everything Subscribe needs. The profile fields
// come from the identity provider and are snapshotted onto the entry.
type SubscribeRequest struct {
	Profile          models.RiderProfile
	BusID            id.BusID
	SubscriptionType models.SubscriptionType
	LocationID       string
}

// Subscribe creates a fresh pending entry for the rider on the bus.
//
// Any stale entry for the rider (whatever its status) is removed in the
// same versioned write that adds the new one, so duplicate cleanup, the
// capacity check against the post-removal count, and the insert commit or
// retry together. A concurrent subscribe racing for the last seat makes
// exactly one caller win; the loser's write hits a version conflict,
// re-reads, and fails the capacity guard.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) (*models.RiderEntry, error) {
	ctx, span := s.startSpan(ctx, "subscription.Subscribe", req.BusID, req.Profile.RiderID)
	defer span.End()
	start := time.Now()

	if !req.SubscriptionType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown subscription type %q", string(req.SubscriptionType))
	}
	if req.Profile.RiderID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rider id is required")
	}

	subscriptionID := id.NewSubscriptionID()
	qrCode, err := s.codes.Issue(req.Profile.RiderID, req.BusID, subscriptionID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	entry, err := models.NewRiderEntry(subscriptionID, req.Profile, req.SubscriptionType, req.LocationID, qrCode, now)
	if err != nil {
		return nil, err
	}

	var created *models.RiderEntry
	_, err = s.updateBus(ctx, req.BusID, func(bus *models.BusAggregate) (bool, error) {
		stale := bus.RemoveRider(req.Profile.RiderID)
		if stale > 0 {
			s.logger.InfoContext(ctx, "removed stale rider entries before subscribe",
				"bus_id", req.BusID,
				"rider_id", req.Profile.RiderID,
				"count", stale,
			)
		}
		if err := bus.CanAddRider(req.Profile.RiderID); err != nil {
			if dErrors.HasCode(err, dErrors.CodeCapacityExceeded) && s.metrics != nil {
				s.metrics.CapacityRejected.Inc()
			}
			return false, err
		}
		bus.Riders = append(bus.Riders, entry)
		created = &bus.Riders[len(bus.Riders)-1]
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.auditEmitter.emit(ctx, audit.EventRiderSubscribed, req.BusID, created, "", "")
	if s.metrics != nil {
		s.metrics.Subscribed.Inc()
	}
	s.observeSubscribe(start)

	result := *created
	return &result, nil
}

// Resubscribe is Subscribe by another name: the stale-entry cleanup built
// into Subscribe is the whole of its semantics, and the fresh entry gets a
// new subscription id and boarding code.
func (s *Service) Resubscribe(ctx context.Context, req SubscribeRequest) (*models.RiderEntry, error) {
	return s.Subscribe(ctx, req)
}
