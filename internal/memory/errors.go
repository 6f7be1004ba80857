package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry is returned for empty vertex/index arrays or indices
	// that point past the vertex list. Delete the object instead of giving it
	// empty geometry.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrUnknownObject is returned when querying or mutating a name that is
	// not in the directory.
	ErrUnknownObject = errors.New("unknown object")

	// ErrCapacityExceeded is returned when geometry does not fit in a single
	// batch (see Config.MaxBatchVertices).
	ErrCapacityExceeded = errors.New("batch capacity exceeded")

	// ErrBackendFailure wraps errors returned by the graphics backend. They
	// are not retried.
	ErrBackendFailure = errors.New("backend failure")
)

// wrapBackend tags a backend error so callers can match ErrBackendFailure
// while keeping the original error in the chain.
func wrapBackend(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), ErrBackendFailure, err)
}
