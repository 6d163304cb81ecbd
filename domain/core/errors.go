package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrSampleNotFound = fmt.Errorf("%w: sample", ErrNotFound)
	ErrRecordNotFound = fmt.Errorf("%w: record", ErrNotFound)

	// Engine errors
	ErrInvalidInput = errors.New("invalid input")
	ErrFitFailure   = errors.New("distribution fit failed")

	// ErrDegenerateGeometry marks a pore set whose centroids all coincide. It is
	// informational: nearest-neighbour distances are still defined (all zero).
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	// Record errors
	ErrRecordMalformed = errors.New("malformed record")
	ErrMissingColumn   = errors.New("missing column")
)

// NewInvalidInputError wraps ErrInvalidInput with the failing operation and reason.
func NewInvalidInputError(op string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, op, reason)
}

// NewFitFailureError wraps ErrFitFailure with the hypothesis and reason.
func NewFitFailureError(hypothesis string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrFitFailure, hypothesis, reason)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewMalformedRecordError(path string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrRecordMalformed, path, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsFitFailure(err error) bool {
	return errors.Is(err, ErrFitFailure)
}
