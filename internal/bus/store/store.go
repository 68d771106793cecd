// Package store defines the document-store port for bus aggregates and its
// implementations.
//
// Error contract: all implementations return sentinel errors from
// pkg/platform/sentinel: ErrNotFound for a missing bus, ErrVersionConflict
// for a lost compare-and-swap, ErrUnavailable (wrapped) for infrastructure
// failures. Services translate these into coded domain errors.
package store

import (
	"context"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
)

// Store is the engine's view of the document store.
//
// Two mutation styles are deliberately distinguished:
//
//   - AtomicAddRider / AtomicRemoveRider are exact-value list operations the
//     store guarantees commute under concurrent writers.
//   - ReplaceRiders is a whole-list write, guarded by a document version:
//     it fails with ErrVersionConflict when the aggregate changed since the
//     read that produced expectedVersion. Callers re-read and retry. This
//     closes the silent last-writer-wins race a bare whole-list write has.
//
// No multi-document transaction is assumed anywhere.
type Store interface {
	// GetBus loads one aggregate, including its current version.
	GetBus(ctx context.Context, busID id.BusID) (*models.BusAggregate, error)

	// PutBus creates or fully overwrites an aggregate document. Used by
	// route management and test seeding, not by the subscription paths.
	PutBus(ctx context.Context, bus *models.BusAggregate) error

	// AtomicAddRider appends the exact entry if it is not already present.
	// Adding an entry that already exists is a no-op, not an error.
	AtomicAddRider(ctx context.Context, busID id.BusID, entry models.RiderEntry) error

	// AtomicRemoveRider removes every element exactly equal to entry.
	// Removing an absent entry is a no-op, not an error.
	AtomicRemoveRider(ctx context.Context, busID id.BusID, entry models.RiderEntry) error

	// ReplaceRiders writes the whole rider list, conditional on the
	// document still being at expectedVersion.
	ReplaceRiders(ctx context.Context, busID id.BusID, riders []models.RiderEntry, expectedVersion int64) error

	// ListBusesWithRiders returns every aggregate whose rider list is
	// non-empty. This is the sweep's initial query.
	ListBusesWithRiders(ctx context.Context) ([]*models.BusAggregate, error)
}
