// Package domain holds typed identifiers shared across the engine.
//
// Rider and bus identifiers are opaque strings minted by external systems
// (the identity provider and the document store respectively), so they are
// validated for shape, not format. Subscription identifiers are minted here
// and are UUID-backed.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
)

// maxOpaqueIDLen bounds externally supplied identifiers at trust boundaries.
const maxOpaqueIDLen = 128

// RiderID identifies a rider. Issued by the identity provider; stable for
// the rider's lifetime.
type RiderID string

// BusID identifies a bus aggregate document.
type BusID string

// SubscriptionID identifies one creation of a rider entry. Regenerated on
// every fresh subscribe; never reused across entries for the same rider/bus.
type SubscriptionID uuid.UUID

// AdminID identifies an operator principal for audit purposes.
type AdminID string

// ParseRiderID validates an externally supplied rider identifier.
func ParseRiderID(s string) (RiderID, error) {
	if err := validateOpaqueID(s, "rider id"); err != nil {
		return "", err
	}
	return RiderID(s), nil
}

// ParseBusID validates an externally supplied bus identifier.
func ParseBusID(s string) (BusID, error) {
	if err := validateOpaqueID(s, "bus id"); err != nil {
		return "", err
	}
	return BusID(s), nil
}

// ParseSubscriptionID validates a subscription identifier string.
func ParseSubscriptionID(s string) (SubscriptionID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil || parsed == uuid.Nil {
		return SubscriptionID{}, dErrors.New(dErrors.CodeInvalidInput, "subscription id must be a valid UUID")
	}
	return SubscriptionID(parsed), nil
}

// NewSubscriptionID mints a fresh subscription identifier.
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID(uuid.New())
}

func (r RiderID) String() string { return string(r) }
func (b BusID) String() string   { return string(b) }
func (a AdminID) String() string { return string(a) }

func (s SubscriptionID) String() string { return uuid.UUID(s).String() }

// IsNil reports whether the subscription id is the zero value.
func (s SubscriptionID) IsNil() bool { return uuid.UUID(s) == uuid.Nil }

// MarshalText implements encoding.TextMarshaler so the id serializes as its
// canonical UUID string inside JSON documents.
func (s SubscriptionID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(s).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SubscriptionID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*s = SubscriptionID(parsed)
	return nil
}

func validateOpaqueID(s, kind string) error {
	if s == "" {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be empty", kind)
	}
	if len(s) > maxOpaqueIDLen {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s exceeds %d characters", kind, maxOpaqueIDLen)
	}
	if strings.TrimSpace(s) != s {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must not contain leading or trailing whitespace", kind)
	}
	return nil
}
