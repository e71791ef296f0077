package driver

import "errors"

// Domain-level error kinds surfaced by every GraphDriver implementation,
// independent of the underlying store's own error types.
var (
	// ErrNotFound is returned when a uuid lookup finds nothing.
	ErrNotFound = errors.New("driver: not found")

	// ErrStoreUnavailable is returned when the underlying store cannot be
	// reached (connection refused, timeout establishing a session).
	ErrStoreUnavailable = errors.New("driver: store unavailable")

	// ErrConflictOrIntegrity is returned on a uniqueness or constraint
	// violation (e.g. duplicate uuid on create).
	ErrConflictOrIntegrity = errors.New("driver: constraint violation")
)
