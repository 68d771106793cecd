package memory

import (
	"context"
	"sync"

	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	audit "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.RiderID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.RiderID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.RiderID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.RiderID] = append(s.events[event.RiderID], event)
	return nil
}

func (s *InMemoryStore) ListByRider(_ context.Context, riderID id.RiderID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[riderID]...), nil
}

// ListAll returns all audit events across all riders (admin-only operation).
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allEvents []audit.Event
	for _, riderEvents := range s.events {
		allEvents = append(allEvents, riderEvents...)
	}
	return allEvents, nil
}
