package store

import "errors"

var (
	// ErrNotFound covers both an unknown order reference and a missing
	// backing file the caller required to exist.
	ErrNotFound = errors.New("order store: not found")

	// ErrInvalidTransition is returned when a status change does not follow
	// an edge of the lifecycle graph.
	ErrInvalidTransition = errors.New("order store: invalid status transition")

	// ErrInconsistentPayment is returned when an order is moved to paid
	// while its payment mode or payment date say otherwise.
	ErrInconsistentPayment = errors.New("order store: inconsistent payment state")

	// ErrCorruptData is returned when a live backing file cannot be decoded.
	// The store never degrades to partial data; callers must stop and alert.
	ErrCorruptData = errors.New("order store: corrupt data")

	// ErrLockTimeout is returned when the exclusive file lock could not be
	// acquired within the configured wait.
	ErrLockTimeout = errors.New("order store: lock timeout")
)
