package models

import (
	"time"

	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
)

// SubscriptionType selects the payment cadence for a rider entry. Fixed for
// the life of the entry.
type SubscriptionType string

const (
	SubscriptionMonthly SubscriptionType = "monthly"
	SubscriptionPerRide SubscriptionType = "per_ride"
)

// Timing policy. These two constants are the only timing policy in the
// engine and their values are load-bearing: the sweep compares elapsed time
// against them with >=.
const (
	PerRideTTL = 24 * time.Hour
	MonthlyTTL = 30 * 24 * time.Hour
)

// Valid reports whether the value is one of the two known cadences.
func (t SubscriptionType) Valid() bool {
	return t == SubscriptionMonthly || t == SubscriptionPerRide
}

// TTL returns how long a payment of this cadence stays valid.
func (t SubscriptionType) TTL() (time.Duration, error) {
	switch t {
	case SubscriptionPerRide:
		return PerRideTTL, nil
	case SubscriptionMonthly:
		return MonthlyTTL, nil
	default:
		return 0, dErrors.Newf(dErrors.CodeInvalidState, "unknown subscription type %q", string(t))
	}
}

// RiderStatus is the association state of a rider entry with its bus.
type RiderStatus string

const (
	// RiderActive means the rider is currently associated with the bus.
	RiderActive RiderStatus = "active"
	// RiderInactive means the rider was active and paid, then unsubscribed.
	// Inactive entries are retained for history and never reactivated;
	// resubscribing creates a fresh entry.
	RiderInactive RiderStatus = "inactive"
)

// Valid reports whether the value is a known rider status.
func (s RiderStatus) Valid() bool {
	return s == RiderActive || s == RiderInactive
}

// PaymentStatus is the payment state of a rider entry. It is set by an
// operator workflow, never by a payment gateway.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentUnpaid  PaymentStatus = "unpaid"
)

// Valid reports whether the value is a known payment status.
func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentPaid || p == PaymentUnpaid
}

// EntryState is the coarse lifecycle state of a rider entry, derived from
// (RiderStatus, PaymentStatus). It exists so transition rules live in one
// place instead of scattered status comparisons.
//
//	StateNone ──Subscribe──▶ StatePending ──payment──▶ StatePaid
//	StatePaid ──sweep expiry──▶ StatePending
//	StatePaid ──Unsubscribe──▶ StateInactive (terminal, entry retained)
//	StatePending ──Unsubscribe/Cancel──▶ StateNone (entry deleted)
//	any state ──AdminRemove──▶ StateNone
type EntryState string

const (
	// StateNone means no entry exists for the rider on this bus.
	StateNone EntryState = "none"
	// StatePending covers active entries that are not paid (payment status
	// pending or unpaid); the boarding code is withheld.
	StatePending EntryState = "pending"
	// StatePaid covers active, paid entries; the boarding code is granted.
	StatePaid EntryState = "paid"
	// StateInactive is terminal: the rider unsubscribed while paid and the
	// entry is kept for history.
	StateInactive EntryState = "inactive"
)

// stateTransitions enumerates every legal transition. Checked by
// CanTransitionTo; anything absent is illegal.
var stateTransitions = map[EntryState][]EntryState{
	StateNone:     {StatePending},
	StatePending:  {StatePaid, StateNone},
	StatePaid:     {StatePending, StateInactive, StateNone},
	StateInactive: {StateNone},
}

// CanTransitionTo reports whether the transition from s to target is legal.
func (s EntryState) CanTransitionTo(target EntryState) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
