package sentinel

import "errors"

// Sentinel dependency errors. Stores and caches return these
// (optionally wrapped) so services translate them into domain errors once.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
	ErrConflict     = errors.New("conflict")
	ErrLeaseHeld    = errors.New("lease held by another worker")
)
