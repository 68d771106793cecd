// Package audit captures the engine's operator-relevant actions as events.
//
// Events are emitted from domain logic and fanned out through a publisher to
// whatever sink the deployment wires: an in-memory store for tests and dev,
// or a Kafka topic for production monitoring. Keep the event transport-
// agnostic so sinks can vary.
package audit

import (
	"context"
	"time"

	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
)

// Event records one action against a rider's subscription or one sweep run.
type Event struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	// RiderID is the rider the action concerns; empty for sweep runs.
	RiderID id.RiderID `json:"riderId,omitempty"`
	BusID   id.BusID   `json:"busId,omitempty"`
	// SubscriptionID pins the exact entry generation affected.
	SubscriptionID string `json:"subscriptionId,omitempty"`
	// ActorID tracks who performed the action when different from the
	// rider, e.g. the operator behind an admin removal.
	ActorID string `json:"actorId,omitempty"`
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string `json:"requestId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// AuditEvent names every action the engine records.
type AuditEvent string

const (
	EventRiderSubscribed       AuditEvent = "rider_subscribed"
	EventPaymentUpdated        AuditEvent = "payment_updated"
	EventRiderUnsubscribed     AuditEvent = "rider_unsubscribed"
	EventSubscriptionCancelled AuditEvent = "subscription_cancelled"
	EventAdminRemovedRider     AuditEvent = "admin_removed_rider"
	EventSweepCompleted        AuditEvent = "sweep_completed"
)

// Store is anything that can durably accept events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader is the optional query side, implemented by stores that retain
// events (the memory store does; a Kafka sink does not).
type Reader interface {
	ListByRider(ctx context.Context, riderID id.RiderID) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
}
