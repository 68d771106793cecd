package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/sentinel"
)

// Memory is an in-memory Store for tests and development. It honors the
// same version semantics as the durable adapters: every successful write,
// atomic or whole-list, bumps the document version.
type Memory struct {
	mu    sync.RWMutex
	buses map[id.BusID]*models.BusAggregate
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{buses: make(map[id.BusID]*models.BusAggregate)}
}

func (m *Memory) GetBus(_ context.Context, busID id.BusID) (*models.BusAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bus, ok := m.buses[busID]
	if !ok {
		return nil, fmt.Errorf("bus %s: %w", busID, sentinel.ErrNotFound)
	}
	return bus.Clone(), nil
}

func (m *Memory) PutBus(_ context.Context, bus *models.BusAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := bus.Clone()
	if existing, ok := m.buses[bus.ID]; ok {
		stored.Version = existing.Version + 1
	} else {
		stored.Version = 1
	}
	m.buses[bus.ID] = stored
	return nil
}

func (m *Memory) AtomicAddRider(_ context.Context, busID id.BusID, entry models.RiderEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bus, ok := m.buses[busID]
	if !ok {
		return fmt.Errorf("bus %s: %w", busID, sentinel.ErrNotFound)
	}
	for i := range bus.Riders {
		if reflect.DeepEqual(bus.Riders[i], entry) {
			return nil
		}
	}
	bus.Riders = append(bus.Riders, entry)
	bus.Version++
	return nil
}

func (m *Memory) AtomicRemoveRider(_ context.Context, busID id.BusID, entry models.RiderEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bus, ok := m.buses[busID]
	if !ok {
		return fmt.Errorf("bus %s: %w", busID, sentinel.ErrNotFound)
	}
	kept := bus.Riders[:0]
	removed := false
	for i := range bus.Riders {
		if reflect.DeepEqual(bus.Riders[i], entry) {
			removed = true
			continue
		}
		kept = append(kept, bus.Riders[i])
	}
	bus.Riders = kept
	if removed {
		bus.Version++
	}
	return nil
}

func (m *Memory) ReplaceRiders(_ context.Context, busID id.BusID, riders []models.RiderEntry, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bus, ok := m.buses[busID]
	if !ok {
		return fmt.Errorf("bus %s: %w", busID, sentinel.ErrNotFound)
	}
	if bus.Version != expectedVersion {
		return fmt.Errorf("bus %s at version %d, expected %d: %w", busID, bus.Version, expectedVersion, sentinel.ErrVersionConflict)
	}
	bus.Riders = make([]models.RiderEntry, len(riders))
	copy(bus.Riders, riders)
	bus.Version++
	return nil
}

func (m *Memory) ListBusesWithRiders(_ context.Context) ([]*models.BusAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var buses []*models.BusAggregate
	for _, bus := range m.buses {
		if len(bus.Riders) > 0 {
			buses = append(buses, bus.Clone())
		}
	}
	// Deterministic order keeps tests stable; production callers don't care.
	sort.Slice(buses, func(i, j int) bool { return buses[i].ID < buses[j].ID })
	return buses, nil
}
