package service

import (
	"context"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
)

// GetSubscription returns the rider's own entry on the bus.
func (s *Service) GetSubscription(ctx context.Context, riderID id.RiderID, busID id.BusID) (*models.RiderEntry, error) {
	bus, err := s.buses.GetBus(ctx, busID)
	if err != nil {
		return nil, wrapBusErr(err)
	}
	idx, err := findEntry(bus, riderID)
	if err != nil {
		return nil, err
	}
	entry := bus.Riders[idx]
	return &entry, nil
}

// BoardingCode returns the rider's code when the access gate grants it.
// The gate is the single authorization point: active and paid, nothing
// else.
func (s *Service) BoardingCode(ctx context.Context, riderID id.RiderID, busID id.BusID) (string, error) {
	entry, err := s.GetSubscription(ctx, riderID, busID)
	if err != nil {
		return "", err
	}
	if !entry.CanAccessCode() {
		return "", dErrors.New(dErrors.CodeForbidden, "subscription is not active and paid")
	}
	return entry.QRCode, nil
}

// VerifyBoardingCode is the driver-side acceptance decision. The presented
// token is authenticated, then the bound entry is re-fetched from the store
// and the access gate consulted on the fresh copy; a client-held entry is
// never trusted. The returned entry lets the driver UI show who boarded.
func (s *Service) VerifyBoardingCode(ctx context.Context, busID id.BusID, token string) (*models.RiderEntry, error) {
	binding, err := s.codes.Parse(token)
	if err != nil {
		return nil, err
	}
	if binding.BusID != busID {
		return nil, dErrors.New(dErrors.CodeNotFound, "boarding code belongs to a different bus")
	}
	entry, err := s.GetSubscription(ctx, binding.RiderID, busID)
	if err != nil {
		return nil, err
	}
	if entry.SubscriptionID != binding.SubscriptionID {
		// Token from a previous subscription generation of the same rider.
		return nil, dErrors.New(dErrors.CodeNotFound, "boarding code does not match a current subscription")
	}
	if !entry.CanAccessCode() {
		return nil, dErrors.New(dErrors.CodeForbidden, "subscription is not active and paid")
	}
	return entry, nil
}

// ListRiders returns every entry on the bus, active and historical. Used by
// the operator dashboard.
func (s *Service) ListRiders(ctx context.Context, busID id.BusID) ([]models.RiderEntry, error) {
	bus, err := s.buses.GetBus(ctx, busID)
	if err != nil {
		return nil, wrapBusErr(err)
	}
	return bus.Riders, nil
}
