package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrDimensionMismatch    = errors.New("dimension mismatch")

	// Numerical errors
	ErrNumerical           = errors.New("numerical failure")
	ErrNotPositiveDefinite = fmt.Errorf("%w: matrix is not positive semi-definite", ErrNumerical)
	ErrSingular            = fmt.Errorf("%w: matrix is singular", ErrNumerical)

	// Capability errors
	ErrUnsupported = errors.New("unsupported operation")
	ErrNotLinear   = fmt.Errorf("%w: model is not linear", ErrUnsupported)
	ErrNoStrategy  = errors.New("no strategy implemented")

	// Storage errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// Error constructors with context
func NewInvalidConfigError(param string, value interface{}, reason string) error {
	return fmt.Errorf("%w: %s=%v: %s", ErrInvalidConfiguration, param, value, reason)
}

func NewDimensionError(what string, want, got int) error {
	return fmt.Errorf("%w: %s expects length %d, got %d", ErrDimensionMismatch, what, want, got)
}

// NewNumericalError names the matrix whose factorization failed.
func NewNumericalError(matrix string, cause error) error {
	if cause == nil {
		cause = ErrNumerical
	}
	return fmt.Errorf("%s: %w", matrix, cause)
}

func NewUnsupportedError(operation, subject string) error {
	return fmt.Errorf("%w: %s is not supported for %s", ErrUnsupported, operation, subject)
}

// NewNoStrategyError names every type that took part in a failed dispatch so the
// missing extension point is obvious from the message.
func NewNoStrategyError(operation, likelihood, prior, model string) error {
	return fmt.Errorf("%w: %s for likelihood=%s, prior=%s, model=%s",
		ErrNoStrategy, operation, likelihood, prior, model)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsInvalidConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrDimensionMismatch)
}

func IsNumericalError(err error) bool {
	return errors.Is(err, ErrNumerical)
}

func IsUnsupportedError(err error) bool {
	return errors.Is(err, ErrUnsupported) ||
		errors.Is(err, ErrNoStrategy)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
