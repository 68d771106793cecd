// Package code issues and verifies boarding-code tokens.
//
// A token is an opaque string bound to (rider id, bus id, subscription id).
// It is generated once at entry creation and stays stable for the entry's
// lifetime. Possession of a token grants nothing on its own: the driver
// path re-fetches the rider entry and consults the access gate, the token
// only proves the code on screen belongs to that entry.
package code

import (
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"strings"

	"golang.org/x/crypto/blake2b"

	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
)

// Issuer mints and verifies boarding codes with a keyed blake2b MAC.
type Issuer struct {
	key []byte
}

// NewIssuer builds an issuer from the configured secret. blake2b caps keys
// at 64 bytes, so longer secrets are rejected rather than silently hashed.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "boarding code secret must not be empty")
	}
	if len(secret) > 64 {
		return nil, dErrors.New(dErrors.CodeValidation, "boarding code secret must be at most 64 bytes")
	}
	return &Issuer{key: []byte(secret)}, nil
}

// binding is the signed payload. Short JSON keys keep the rendered QR dense
// but scannable.
type binding struct {
	RiderID        string `json:"r"`
	BusID          string `json:"b"`
	SubscriptionID string `json:"s"`
}

// Issue mints the token for a rider entry.
func (i *Issuer) Issue(riderID id.RiderID, busID id.BusID, subscriptionID id.SubscriptionID) (string, error) {
	payload, err := json.Marshal(binding{
		RiderID:        riderID.String(),
		BusID:          busID.String(),
		SubscriptionID: subscriptionID.String(),
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode boarding code payload")
	}
	mac, err := i.mac(payload)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(mac), nil
}

// Binding is the verified identity triple a token is bound to.
type Binding struct {
	RiderID        id.RiderID
	BusID          id.BusID
	SubscriptionID id.SubscriptionID
}

// Parse authenticates a presented token and returns its binding. The driver
// path uses this to learn which entry to re-fetch; it must never trust the
// binding without also consulting the access gate on the fetched entry.
func (i *Issuer) Parse(token string) (Binding, error) {
	payloadPart, macPart, ok := strings.Cut(token, ".")
	if !ok {
		return Binding{}, errCodeMismatch()
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return Binding{}, errCodeMismatch()
	}
	presented, err := base64.RawURLEncoding.DecodeString(macPart)
	if err != nil {
		return Binding{}, errCodeMismatch()
	}
	expected, err := i.mac(payload)
	if err != nil {
		return Binding{}, err
	}
	if !hmac.Equal(presented, expected) {
		return Binding{}, errCodeMismatch()
	}
	var bound binding
	if err := json.Unmarshal(payload, &bound); err != nil {
		return Binding{}, errCodeMismatch()
	}
	riderID, err := id.ParseRiderID(bound.RiderID)
	if err != nil {
		return Binding{}, errCodeMismatch()
	}
	busID, err := id.ParseBusID(bound.BusID)
	if err != nil {
		return Binding{}, errCodeMismatch()
	}
	subscriptionID, err := id.ParseSubscriptionID(bound.SubscriptionID)
	if err != nil {
		return Binding{}, errCodeMismatch()
	}
	return Binding{RiderID: riderID, BusID: busID, SubscriptionID: subscriptionID}, nil
}

// Verify checks the token's MAC and that it is bound to the given entry.
// Returns a not-found flavored error on any mismatch so callers cannot
// distinguish a forged token from a stale one.
func (i *Issuer) Verify(token string, riderID id.RiderID, busID id.BusID, subscriptionID id.SubscriptionID) error {
	bound, err := i.Parse(token)
	if err != nil {
		return err
	}
	if bound.RiderID != riderID || bound.BusID != busID || bound.SubscriptionID != subscriptionID {
		return errCodeMismatch()
	}
	return nil
}

func (i *Issuer) mac(payload []byte) ([]byte, error) {
	h, err := blake2b.New256(i.key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "initialize boarding code MAC")
	}
	h.Write(payload)
	return h.Sum(nil), nil
}

func errCodeMismatch() error {
	return dErrors.New(dErrors.CodeNotFound, "boarding code does not match a current subscription")
}
