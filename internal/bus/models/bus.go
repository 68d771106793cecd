package models

import (
	"time"

	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
)

// BusAggregate is the root document and the unit of consistency: every
// mutation targets exactly one aggregate, and the store's versioned writes
// serialize whole-list updates against it.
//
// Invariants:
//   - At most one entry per rider id has Status == active at any time
//   - len(active entries) never exceeds MaxCapacity after a successful mutation
type BusAggregate struct {
	ID          id.BusID     `json:"id"`
	Label       string       `json:"label,omitempty"`
	MaxCapacity int          `json:"maxCapacity"`
	Riders      []RiderEntry `json:"currentRiders"`

	// Version is store metadata for compare-and-swap writes, not part of
	// the document payload.
	Version int64 `json:"-"`
}

// ActiveCount returns the number of active entries, the figure capacity is
// checked against. Inactive history entries do not occupy seats.
func (b *BusAggregate) ActiveCount() int {
	count := 0
	for i := range b.Riders {
		if b.Riders[i].Status == RiderActive {
			count++
		}
	}
	return count
}

// HasCapacity reports whether one more active rider fits.
func (b *BusAggregate) HasCapacity() bool {
	return b.ActiveCount() < b.MaxCapacity
}

// FindRider returns the index of the first entry for riderID, or -1.
// Active entries win over inactive history entries when both exist.
func (b *BusAggregate) FindRider(riderID id.RiderID) int {
	found := -1
	for i := range b.Riders {
		if b.Riders[i].RiderID != riderID {
			continue
		}
		if b.Riders[i].Status == RiderActive {
			return i
		}
		if found == -1 {
			found = i
		}
	}
	return found
}

// EntriesFor returns the indexes of every entry for riderID, in aggregate
// order. Normally at most one, but duplicates can survive a crashed
// subscribe; callers that clean up stale state need all of them.
func (b *BusAggregate) EntriesFor(riderID id.RiderID) []int {
	var indexes []int
	for i := range b.Riders {
		if b.Riders[i].RiderID == riderID {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// RemoveRider drops every entry for riderID and returns how many were
// removed.
func (b *BusAggregate) RemoveRider(riderID id.RiderID) int {
	kept := b.Riders[:0]
	removed := 0
	for i := range b.Riders {
		if b.Riders[i].RiderID == riderID {
			removed++
			continue
		}
		kept = append(kept, b.Riders[i])
	}
	b.Riders = kept
	return removed
}

// CanAddRider checks the NONE→PENDING guard: the rider must not already
// hold an active entry and a seat must be free. Stale-entry cleanup happens
// before this check, so the count is the post-removal count.
func (b *BusAggregate) CanAddRider(riderID id.RiderID) error {
	for i := range b.Riders {
		if b.Riders[i].RiderID == riderID && b.Riders[i].Status == RiderActive {
			return dErrors.New(dErrors.CodeInvariantViolation, "rider already holds an active entry")
		}
	}
	if !b.HasCapacity() {
		return dErrors.Newf(dErrors.CodeCapacityExceeded, "bus is at capacity (%d riders)", b.MaxCapacity)
	}
	return nil
}

// ExpireDue applies the TTL rule to every paid entry, reverting expired ones
// to pending in place. Returns how many entries changed. Idempotent: a
// second pass with the same now changes nothing.
func (b *BusAggregate) ExpireDue(now time.Time) int {
	expired := 0
	for i := range b.Riders {
		if b.Riders[i].IsExpired(now) {
			b.Riders[i].ApplyExpiration()
			expired++
		}
	}
	return expired
}

// Validate checks aggregate-level invariants plus each entry's own.
func (b *BusAggregate) Validate() error {
	if b.ID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "bus aggregate missing id")
	}
	if b.MaxCapacity < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "bus capacity must not be negative")
	}
	active := make(map[id.RiderID]bool, len(b.Riders))
	for i := range b.Riders {
		if err := b.Riders[i].Validate(); err != nil {
			return err
		}
		if b.Riders[i].Status != RiderActive {
			continue
		}
		if active[b.Riders[i].RiderID] {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "rider %s has more than one active entry", b.Riders[i].RiderID)
		}
		active[b.Riders[i].RiderID] = true
	}
	if len(active) > b.MaxCapacity {
		return dErrors.New(dErrors.CodeInvariantViolation, "active riders exceed bus capacity")
	}
	return nil
}

// Clone returns a deep copy so read-modify-write cycles never alias the
// store's copy of the rider list.
func (b *BusAggregate) Clone() *BusAggregate {
	clone := *b
	clone.Riders = make([]RiderEntry, len(b.Riders))
	copy(clone.Riders, b.Riders)
	return &clone
}
