package service

import (
	"context"
	"log/slog"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	audit "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/requestcontext"
)

// AuditPublisher is the slice of the audit publisher this service needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// auditEmitter shields the mutation paths from audit failures: an event
// that cannot be recorded is logged and dropped, never surfaced to the
// rider.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (a *auditEmitter) emit(ctx context.Context, action audit.AuditEvent, busID id.BusID, entry *models.RiderEntry, actorID id.AdminID, reason string) {
	if a.publisher == nil {
		return
	}
	event := audit.Event{
		Action:    string(action),
		Timestamp: requestcontext.Now(ctx),
		BusID:     busID,
		ActorID:   actorID.String(),
		RequestID: requestcontext.RequestID(ctx),
		Reason:    reason,
	}
	if entry != nil {
		event.RiderID = entry.RiderID
		event.SubscriptionID = entry.SubscriptionID.String()
	}
	if err := a.publisher.Emit(ctx, event); err != nil {
		a.logger.WarnContext(ctx, "failed to record audit event",
			"action", action,
			"bus_id", busID,
			"error", err,
		)
	}
}
