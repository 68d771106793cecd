package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/sentinel"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/testutil"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Memory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) seedBus(busID id.BusID, capacity int) *models.BusAggregate {
	bus := &models.BusAggregate{ID: busID, MaxCapacity: capacity}
	s.Require().NoError(s.store.PutBus(s.ctx, bus))
	stored, err := s.store.GetBus(s.ctx, busID)
	s.Require().NoError(err)
	return stored
}

func (s *MemoryStoreSuite) newEntry(riderID id.RiderID) models.RiderEntry {
	entry, err := models.NewRiderEntry(
		id.NewSubscriptionID(),
		models.RiderProfile{RiderID: riderID},
		models.SubscriptionPerRide,
		"",
		"code-"+string(riderID),
		testutil.FixedTime(),
	)
	s.Require().NoError(err)
	return entry
}

func (s *MemoryStoreSuite) TestGetBus() {
	s.Run("returns ErrNotFound for unknown bus", func() {
		_, err := s.store.GetBus(s.ctx, "ghost")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned aggregate does not alias the stored one", func() {
		s.seedBus("bus-1", 5)
		entry := s.newEntry("r1")
		s.Require().NoError(s.store.AtomicAddRider(s.ctx, "bus-1", entry))

		bus, err := s.store.GetBus(s.ctx, "bus-1")
		s.Require().NoError(err)
		bus.Riders[0].PaymentStatus = models.PaymentUnpaid

		again, err := s.store.GetBus(s.ctx, "bus-1")
		s.Require().NoError(err)
		s.Equal(models.PaymentPending, again.Riders[0].PaymentStatus)
	})
}

func (s *MemoryStoreSuite) TestAtomicAddRemove() {
	s.Run("add is idempotent for the exact same entry", func() {
		s.seedBus("bus-1", 5)
		entry := s.newEntry("r1")

		s.Require().NoError(s.store.AtomicAddRider(s.ctx, "bus-1", entry))
		s.Require().NoError(s.store.AtomicAddRider(s.ctx, "bus-1", entry))

		bus, err := s.store.GetBus(s.ctx, "bus-1")
		s.Require().NoError(err)
		s.Len(bus.Riders, 1)
	})

	s.Run("remove targets the exact value only", func() {
		s.seedBus("bus-2", 5)
		kept := s.newEntry("r1")
		removed := s.newEntry("r2")
		s.Require().NoError(s.store.AtomicAddRider(s.ctx, "bus-2", kept))
		s.Require().NoError(s.store.AtomicAddRider(s.ctx, "bus-2", removed))

		s.Require().NoError(s.store.AtomicRemoveRider(s.ctx, "bus-2", removed))

		bus, err := s.store.GetBus(s.ctx, "bus-2")
		s.Require().NoError(err)
		s.Require().Len(bus.Riders, 1)
		s.Equal(kept.RiderID, bus.Riders[0].RiderID)
	})

	s.Run("removing an absent entry is a no-op without a version bump", func() {
		bus := s.seedBus("bus-3", 5)
		before := bus.Version

		s.Require().NoError(s.store.AtomicRemoveRider(s.ctx, "bus-3", s.newEntry("ghost")))

		after, err := s.store.GetBus(s.ctx, "bus-3")
		s.Require().NoError(err)
		s.Equal(before, after.Version)
	})

	s.Run("a stale copy of the entry does not match", func() {
		s.seedBus("bus-4", 5)
		entry := s.newEntry("r1")
		s.Require().NoError(s.store.AtomicAddRider(s.ctx, "bus-4", entry))

		stale := entry
		stale.PaymentStatus = models.PaymentUnpaid
		s.Require().NoError(s.store.AtomicRemoveRider(s.ctx, "bus-4", stale))

		bus, err := s.store.GetBus(s.ctx, "bus-4")
		s.Require().NoError(err)
		s.Len(bus.Riders, 1, "the current entry must survive a stale-value remove")
	})
}

func (s *MemoryStoreSuite) TestReplaceRiders() {
	s.Run("succeeds at the expected version and bumps it", func() {
		bus := s.seedBus("bus-1", 5)
		entry := s.newEntry("r1")

		s.Require().NoError(s.store.ReplaceRiders(s.ctx, "bus-1", []models.RiderEntry{entry}, bus.Version))

		after, err := s.store.GetBus(s.ctx, "bus-1")
		s.Require().NoError(err)
		s.Len(after.Riders, 1)
		s.Equal(bus.Version+1, after.Version)
	})

	s.Run("fails with ErrVersionConflict after an interleaved write", func() {
		bus := s.seedBus("bus-2", 5)
		s.Require().NoError(s.store.AtomicAddRider(s.ctx, "bus-2", s.newEntry("r1")))

		err := s.store.ReplaceRiders(s.ctx, "bus-2", nil, bus.Version)
		s.Require().ErrorIs(err, sentinel.ErrVersionConflict)
	})

	s.Run("unknown bus returns ErrNotFound", func() {
		err := s.store.ReplaceRiders(s.ctx, "ghost", nil, 1)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestListBusesWithRiders() {
	s.seedBus("bus-b", 5)
	s.seedBus("bus-a", 5)
	s.seedBus("bus-empty", 5)
	s.Require().NoError(s.store.AtomicAddRider(s.ctx, "bus-a", s.newEntry("r1")))
	s.Require().NoError(s.store.AtomicAddRider(s.ctx, "bus-b", s.newEntry("r2")))

	buses, err := s.store.ListBusesWithRiders(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(buses, 2, "empty buses are excluded")
	s.Equal(id.BusID("bus-a"), buses[0].ID)
	s.Equal(id.BusID("bus-b"), buses[1].ID)
}
