package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
)

func newTestBus(t *testing.T, capacity int) *BusAggregate {
	t.Helper()
	return &BusAggregate{ID: "bus-1", Label: "Campus North", MaxCapacity: capacity}
}

func addEntry(t *testing.T, bus *BusAggregate, riderID id.RiderID, subscriptionType SubscriptionType) *RiderEntry {
	t.Helper()
	entry, err := NewRiderEntry(
		id.NewSubscriptionID(),
		RiderProfile{RiderID: riderID, Name: string(riderID)},
		subscriptionType,
		"",
		"code-"+string(riderID),
		testNow,
	)
	require.NoError(t, err)
	require.NoError(t, bus.CanAddRider(riderID))
	bus.Riders = append(bus.Riders, entry)
	return &bus.Riders[len(bus.Riders)-1]
}

func TestCapacity(t *testing.T) {
	t.Run("counts only active entries", func(t *testing.T) {
		bus := newTestBus(t, 2)
		addEntry(t, bus, "r1", SubscriptionPerRide)
		paid := addEntry(t, bus, "r2", SubscriptionMonthly)
		require.NoError(t, paid.MarkPaid(testNow))
		paid.ApplyDeactivation(testNow)

		assert.Equal(t, 1, bus.ActiveCount())
		assert.True(t, bus.HasCapacity())
	})

	t.Run("rejects the rider past the last seat", func(t *testing.T) {
		bus := newTestBus(t, 2)
		addEntry(t, bus, "r1", SubscriptionPerRide)
		addEntry(t, bus, "r2", SubscriptionPerRide)

		err := bus.CanAddRider("r3")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
	})

	t.Run("exactly full is still valid", func(t *testing.T) {
		bus := newTestBus(t, 2)
		addEntry(t, bus, "r1", SubscriptionPerRide)
		addEntry(t, bus, "r2", SubscriptionPerRide)
		assert.NoError(t, bus.Validate())
		assert.False(t, bus.HasCapacity())
	})

	t.Run("rejects duplicate active rider regardless of capacity", func(t *testing.T) {
		bus := newTestBus(t, 10)
		addEntry(t, bus, "r1", SubscriptionPerRide)

		err := bus.CanAddRider("r1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestFindRider(t *testing.T) {
	bus := newTestBus(t, 5)
	old := addEntry(t, bus, "r1", SubscriptionMonthly)
	require.NoError(t, old.MarkPaid(testNow))
	old.ApplyDeactivation(testNow)
	fresh := addEntry(t, bus, "r1", SubscriptionPerRide)

	t.Run("active entry wins over history", func(t *testing.T) {
		idx := bus.FindRider("r1")
		require.GreaterOrEqual(t, idx, 0)
		assert.Equal(t, fresh.SubscriptionID, bus.Riders[idx].SubscriptionID)
	})

	t.Run("history entry is found when no active one exists", func(t *testing.T) {
		historyOnly := newTestBus(t, 5)
		e := addEntry(t, historyOnly, "r2", SubscriptionMonthly)
		require.NoError(t, e.MarkPaid(testNow))
		e.ApplyDeactivation(testNow)

		idx := historyOnly.FindRider("r2")
		require.GreaterOrEqual(t, idx, 0)
		assert.Equal(t, RiderInactive, historyOnly.Riders[idx].Status)
	})

	t.Run("missing rider returns -1", func(t *testing.T) {
		assert.Equal(t, -1, bus.FindRider("ghost"))
	})

	t.Run("EntriesFor returns every generation", func(t *testing.T) {
		assert.Len(t, bus.EntriesFor("r1"), 2)
	})

	t.Run("RemoveRider drops every generation", func(t *testing.T) {
		clone := bus.Clone()
		assert.Equal(t, 2, clone.RemoveRider("r1"))
		assert.Empty(t, clone.EntriesFor("r1"))
	})
}

func TestExpireDue(t *testing.T) {
	bus := newTestBus(t, 10)
	due := addEntry(t, bus, "r1", SubscriptionPerRide)
	require.NoError(t, due.MarkPaid(testNow.Add(-PerRideTTL)))
	fresh := addEntry(t, bus, "r2", SubscriptionPerRide)
	require.NoError(t, fresh.MarkPaid(testNow.Add(-time.Hour)))
	addEntry(t, bus, "r3", SubscriptionPerRide)

	t.Run("expires only due paid entries", func(t *testing.T) {
		assert.Equal(t, 1, bus.ExpireDue(testNow))
		assert.Equal(t, PaymentPending, bus.Riders[0].PaymentStatus)
		assert.Equal(t, PaymentPaid, bus.Riders[1].PaymentStatus)
		assert.Equal(t, PaymentPending, bus.Riders[2].PaymentStatus)
	})

	t.Run("second pass with the same clock is a no-op", func(t *testing.T) {
		assert.Equal(t, 0, bus.ExpireDue(testNow))
	})
}

func TestBusValidate(t *testing.T) {
	t.Run("detects duplicate active entries", func(t *testing.T) {
		bus := newTestBus(t, 10)
		addEntry(t, bus, "r1", SubscriptionPerRide)
		entry := bus.Riders[0]
		entry.SubscriptionID = id.NewSubscriptionID()
		bus.Riders = append(bus.Riders, entry)

		require.Error(t, bus.Validate())
	})

	t.Run("detects over-capacity state", func(t *testing.T) {
		bus := newTestBus(t, 1)
		addEntry(t, bus, "r1", SubscriptionPerRide)
		entry, err := NewRiderEntry(id.NewSubscriptionID(), RiderProfile{RiderID: "r2"}, SubscriptionPerRide, "", "c", testNow)
		require.NoError(t, err)
		bus.Riders = append(bus.Riders, entry)

		require.Error(t, bus.Validate())
	})
}

func TestClone(t *testing.T) {
	bus := newTestBus(t, 5)
	addEntry(t, bus, "r1", SubscriptionPerRide)

	clone := bus.Clone()
	clone.Riders[0].PaymentStatus = PaymentUnpaid
	assert.Equal(t, PaymentPending, bus.Riders[0].PaymentStatus, "clone must not alias the original list")
}
