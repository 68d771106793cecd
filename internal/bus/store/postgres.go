package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/sentinel"
)

// Postgres stores each bus aggregate as one row with a JSONB rider list and
// a version counter. Every write, atomic or whole-list, bumps the version,
// so ReplaceRiders catches any interleaved writer.
//
// The atomic list operations are single UPDATE statements that do their
// membership check server-side, which makes them commute under concurrent
// writers the same way the interface promises.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema creates the buses table. Integration tests and first boot call
// this; production deployments run it as a migration.
const Schema = `
CREATE TABLE IF NOT EXISTS buses (
    id           TEXT PRIMARY KEY,
    label        TEXT NOT NULL DEFAULT '',
    max_capacity INTEGER NOT NULL,
    riders       JSONB NOT NULL DEFAULT '[]'::jsonb,
    version      BIGINT NOT NULL DEFAULT 1
)`

// EnsureSchema applies Schema.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return unavailable("ensure buses schema", err)
	}
	return nil
}

func (p *Postgres) GetBus(ctx context.Context, busID id.BusID) (*models.BusAggregate, error) {
	const query = `SELECT label, max_capacity, riders, version FROM buses WHERE id = $1`
	var (
		label    string
		capacity int
		raw      []byte
		version  int64
	)
	err := p.db.QueryRowContext(ctx, query, busID.String()).Scan(&label, &capacity, &raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bus %s: %w", busID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("load bus", err)
	}
	var riders []models.RiderEntry
	if err := json.Unmarshal(raw, &riders); err != nil {
		return nil, fmt.Errorf("decode riders for bus %s: %w", busID, err)
	}
	return &models.BusAggregate{
		ID:          busID,
		Label:       label,
		MaxCapacity: capacity,
		Riders:      riders,
		Version:     version,
	}, nil
}

func (p *Postgres) PutBus(ctx context.Context, bus *models.BusAggregate) error {
	raw, err := json.Marshal(bus.Riders)
	if err != nil {
		return fmt.Errorf("encode riders for bus %s: %w", bus.ID, err)
	}
	const query = `
		INSERT INTO buses (id, label, max_capacity, riders, version)
		VALUES ($1, $2, $3, $4::jsonb, 1)
		ON CONFLICT (id) DO UPDATE
		SET label = EXCLUDED.label,
		    max_capacity = EXCLUDED.max_capacity,
		    riders = EXCLUDED.riders,
		    version = buses.version + 1`
	if _, err := p.db.ExecContext(ctx, query, bus.ID.String(), bus.Label, bus.MaxCapacity, raw); err != nil {
		return unavailable("store bus", err)
	}
	return nil
}

func (p *Postgres) AtomicAddRider(ctx context.Context, busID id.BusID, entry models.RiderEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode rider entry: %w", err)
	}
	// Membership is checked inside the statement with exact jsonb equality,
	// so concurrent adds commute and a duplicate add is a no-op.
	const query = `
		UPDATE buses
		   SET riders = riders || jsonb_build_array($2::jsonb),
		       version = version + 1
		 WHERE id = $1
		   AND NOT EXISTS (
		       SELECT 1 FROM jsonb_array_elements(riders) elem WHERE elem = $2::jsonb
		   )`
	result, err := p.db.ExecContext(ctx, query, busID.String(), raw)
	if err != nil {
		return unavailable("add rider entry", err)
	}
	return p.noRowsMeansMissingOrNoop(ctx, busID, result)
}

func (p *Postgres) AtomicRemoveRider(ctx context.Context, busID id.BusID, entry models.RiderEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode rider entry: %w", err)
	}
	const query = `
		UPDATE buses
		   SET riders = COALESCE(
		           (SELECT jsonb_agg(elem) FROM jsonb_array_elements(riders) elem WHERE elem <> $2::jsonb),
		           '[]'::jsonb
		       ),
		       version = version + 1
		 WHERE id = $1
		   AND EXISTS (
		       SELECT 1 FROM jsonb_array_elements(riders) elem WHERE elem = $2::jsonb
		   )`
	result, err := p.db.ExecContext(ctx, query, busID.String(), raw)
	if err != nil {
		return unavailable("remove rider entry", err)
	}
	return p.noRowsMeansMissingOrNoop(ctx, busID, result)
}

func (p *Postgres) ReplaceRiders(ctx context.Context, busID id.BusID, riders []models.RiderEntry, expectedVersion int64) error {
	if riders == nil {
		riders = []models.RiderEntry{}
	}
	raw, err := json.Marshal(riders)
	if err != nil {
		return fmt.Errorf("encode riders for bus %s: %w", busID, err)
	}
	const query = `
		UPDATE buses
		   SET riders = $2::jsonb,
		       version = version + 1
		 WHERE id = $1
		   AND version = $3`
	result, err := p.db.ExecContext(ctx, query, busID.String(), raw, expectedVersion)
	if err != nil {
		return unavailable("replace riders", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return unavailable("replace riders", err)
	}
	if affected > 0 {
		return nil
	}
	// Either the bus is gone or someone wrote in between; one extra read
	// tells the two apart.
	var current int64
	err = p.db.QueryRowContext(ctx, `SELECT version FROM buses WHERE id = $1`, busID.String()).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("bus %s: %w", busID, sentinel.ErrNotFound)
	}
	if err != nil {
		return unavailable("replace riders", err)
	}
	return fmt.Errorf("bus %s at version %d, expected %d: %w", busID, current, expectedVersion, sentinel.ErrVersionConflict)
}

func (p *Postgres) ListBusesWithRiders(ctx context.Context) ([]*models.BusAggregate, error) {
	const query = `
		SELECT id, label, max_capacity, riders, version
		  FROM buses
		 WHERE jsonb_array_length(riders) > 0
		 ORDER BY id`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("list buses with riders", err)
	}
	defer rows.Close()

	var buses []*models.BusAggregate
	for rows.Next() {
		var (
			busID    string
			label    string
			capacity int
			raw      []byte
			version  int64
		)
		if err := rows.Scan(&busID, &label, &capacity, &raw, &version); err != nil {
			return nil, unavailable("scan bus row", err)
		}
		var riders []models.RiderEntry
		if err := json.Unmarshal(raw, &riders); err != nil {
			return nil, fmt.Errorf("decode riders for bus %s: %w", busID, err)
		}
		buses = append(buses, &models.BusAggregate{
			ID:          id.BusID(busID),
			Label:       label,
			MaxCapacity: capacity,
			Riders:      riders,
			Version:     version,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list buses with riders", err)
	}
	return buses, nil
}

// noRowsMeansMissingOrNoop classifies a zero-row atomic list update:
// the bus not existing is an error, the entry already being in its target
// state is a success.
func (p *Postgres) noRowsMeansMissingOrNoop(ctx context.Context, busID id.BusID, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return unavailable("inspect update result", err)
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM buses WHERE id = $1)`, busID.String()).Scan(&exists); err != nil {
		return unavailable("check bus existence", err)
	}
	if !exists {
		return fmt.Errorf("bus %s: %w", busID, sentinel.ErrNotFound)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, sentinel.ErrUnavailable)
}
