package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Store adapters return these
// (optionally wrapped) so services can translate them into coded domain
// errors without inspecting driver-specific failures.
//
// These represent factual states about stored aggregates, not validation
// failures:
// - ErrNotFound: bus document or rider entry does not exist
// - ErrConflict: unique constraint or duplicate entry at the store level
// - ErrVersionConflict: compare-and-swap write lost against a newer document version
// - ErrInvalidState: stored entry is in the wrong state for the requested operation
// - ErrUnavailable: the document store is unreachable or timed out
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrVersionConflict = errors.New("version conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnavailable     = errors.New("unavailable")
)
