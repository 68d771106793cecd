package models

import (
	"time"

	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
)

// RiderProfile carries the identity fields copied onto a rider entry at
// creation time. Denormalized on purpose: the entry is a snapshot, not kept
// in sync with the identity provider afterwards.
type RiderProfile struct {
	RiderID id.RiderID
	Name    string
	Email   string
}

// RiderEntry is one rider's relationship to one bus, embedded in the bus
// aggregate. It is the only entity in the engine with a real lifecycle.
//
// Invariants:
//   - PaidAt and ExpiresAt are both set iff PaymentStatus == paid,
//     with ExpiresAt = PaidAt + TTL(SubscriptionType)
//   - SubscriptionID is unique per creation; a resubscribe mints a new one
//   - UnsubscribedAt is set only on the paid→inactive transition
type RiderEntry struct {
	RiderID          id.RiderID        `json:"riderId"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	SubscriptionID   id.SubscriptionID `json:"subscriptionId"`
	SubscriptionType SubscriptionType  `json:"subscriptionType"`
	Status           RiderStatus       `json:"status"`
	PaymentStatus    PaymentStatus     `json:"paymentStatus"`
	AssignedAt       time.Time         `json:"assignedAt"`
	StartDate        time.Time         `json:"startDate"`
	// EndDate is informational only (set for monthly entries at creation);
	// expiration is driven by PaidAt + TTL, never by EndDate.
	EndDate        *time.Time `json:"endDate,omitempty"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty"`
	// QRCode is an opaque token bound to (rider, bus, subscription), issued
	// at creation and stable for the entry's lifetime.
	QRCode string `json:"qrCode"`
	// LocationID is the rider's chosen stop on the route, when any.
	LocationID string `json:"locationId,omitempty"`
}

// NewRiderEntry creates a fresh entry in the pending state. The caller
// mints the subscription id and issues the boarding code bound to it;
// token material lives outside the model layer.
func NewRiderEntry(subscriptionID id.SubscriptionID, profile RiderProfile, subscriptionType SubscriptionType, locationID string, qrCode string, now time.Time) (RiderEntry, error) {
	if profile.RiderID == "" {
		return RiderEntry{}, dErrors.New(dErrors.CodeInvariantViolation, "rider entry requires a rider id")
	}
	if subscriptionID.IsNil() {
		return RiderEntry{}, dErrors.New(dErrors.CodeInvariantViolation, "rider entry requires a subscription id")
	}
	if !subscriptionType.Valid() {
		return RiderEntry{}, dErrors.Newf(dErrors.CodeInvalidState, "unknown subscription type %q", string(subscriptionType))
	}
	entry := RiderEntry{
		RiderID:          profile.RiderID,
		Name:             profile.Name,
		Email:            profile.Email,
		SubscriptionID:   subscriptionID,
		SubscriptionType: subscriptionType,
		Status:           RiderActive,
		PaymentStatus:    PaymentPending,
		AssignedAt:       now,
		StartDate:        now,
		QRCode:           qrCode,
		LocationID:       locationID,
	}
	if subscriptionType == SubscriptionMonthly {
		end := now.Add(MonthlyTTL)
		entry.EndDate = &end
	}
	return entry, nil
}

// State derives the coarse lifecycle state.
func (e *RiderEntry) State() EntryState {
	switch {
	case e.Status == RiderInactive:
		return StateInactive
	case e.PaymentStatus == PaymentPaid:
		return StatePaid
	default:
		return StatePending
	}
}

// CanAccessCode is the access gate: the boarding code may be displayed or
// accepted only for an active, paid entry. Pure; both the rider "show code"
// path and the driver "accept code" path consult it.
func (e *RiderEntry) CanAccessCode() bool {
	return e.Status == RiderActive && e.PaymentStatus == PaymentPaid
}

// CanMarkPaid checks the pending→paid transition.
func (e *RiderEntry) CanMarkPaid() error {
	if _, err := e.SubscriptionType.TTL(); err != nil {
		return err
	}
	if !e.State().CanTransitionTo(StatePaid) {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot mark %s entry paid", e.State())
	}
	return nil
}

// MarkPaid validates and applies the pending→paid transition, stamping
// PaidAt and the type-derived ExpiresAt.
func (e *RiderEntry) MarkPaid(now time.Time) error {
	if err := e.CanMarkPaid(); err != nil {
		return err
	}
	ttl, err := e.SubscriptionType.TTL()
	if err != nil {
		return err
	}
	expires := now.Add(ttl)
	e.PaymentStatus = PaymentPaid
	e.PaidAt = &now
	e.ExpiresAt = &expires
	return nil
}

// ApplyPaymentStatus moves the entry to a non-paid payment status, clearing
// the payment timestamps so the paid⇔timestamps invariant holds.
func (e *RiderEntry) ApplyPaymentStatus(status PaymentStatus) {
	e.PaymentStatus = status
	e.PaidAt = nil
	e.ExpiresAt = nil
}

// IsExpired reports whether a paid entry's TTL has elapsed as of now.
// The comparison is >=: an entry paid exactly TTL ago is expired.
// Non-paid and inactive entries never expire.
func (e *RiderEntry) IsExpired(now time.Time) bool {
	if e.Status != RiderActive || e.PaymentStatus != PaymentPaid || e.PaidAt == nil {
		return false
	}
	ttl, err := e.SubscriptionType.TTL()
	if err != nil {
		return false
	}
	return now.Sub(*e.PaidAt) >= ttl
}

// ApplyExpiration reverts a paid entry to pending, clearing the payment
// timestamps. The entry stays active; re-expiring an already-pending entry
// is a no-op at the call site because IsExpired is false for it.
func (e *RiderEntry) ApplyExpiration() {
	e.PaymentStatus = PaymentPending
	e.PaidAt = nil
	e.ExpiresAt = nil
}

// DeletableOnUnsubscribe reports whether an unsubscribe removes the entry
// outright (never paid) rather than retaining it for history.
func (e *RiderEntry) DeletableOnUnsubscribe() bool {
	return e.PaymentStatus == PaymentPending || e.PaymentStatus == PaymentUnpaid
}

// CanDeactivate checks the paid→inactive transition taken when a paying
// rider unsubscribes.
func (e *RiderEntry) CanDeactivate() error {
	if !e.State().CanTransitionTo(StateInactive) {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot deactivate %s entry", e.State())
	}
	return nil
}

// ApplyDeactivation retires a paid entry, keeping it in the aggregate with
// its payment fields intact for history. Call CanDeactivate first.
func (e *RiderEntry) ApplyDeactivation(now time.Time) {
	e.Status = RiderInactive
	e.UnsubscribedAt = &now
}

// Validate checks the entry's internal invariants. Used by tests and by the
// store boundary as a cheap corruption tripwire.
func (e *RiderEntry) Validate() error {
	if e.RiderID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "rider entry missing rider id")
	}
	if !e.Status.Valid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown rider status %q", string(e.Status))
	}
	if !e.PaymentStatus.Valid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown payment status %q", string(e.PaymentStatus))
	}
	paid := e.PaymentStatus == PaymentPaid
	if paid != (e.PaidAt != nil) || paid != (e.ExpiresAt != nil) {
		return dErrors.New(dErrors.CodeInvariantViolation, "payment timestamps inconsistent with payment status")
	}
	if paid {
		ttl, err := e.SubscriptionType.TTL()
		if err != nil {
			return err
		}
		if !e.ExpiresAt.Equal(e.PaidAt.Add(ttl)) {
			return dErrors.New(dErrors.CodeInvariantViolation, "expiresAt does not equal paidAt plus subscription TTL")
		}
	}
	return nil
}
