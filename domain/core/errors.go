package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Sampling errors
	ErrInsufficientPopulation = errors.New("insufficient population")
	ErrInvalidPrecision       = errors.New("invalid precision")
	ErrInvalidSampleSize      = errors.New("invalid sample size")

	// Estimation errors
	ErrFitFailure = errors.New("regression fit failed")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// NewInsufficientPopulationError reports a draw request larger than the population.
func NewInsufficientPopulationError(required, available int) error {
	return fmt.Errorf("%w: need %d distinct records, population has %d", ErrInsufficientPopulation, required, available)
}

// NewInvalidPrecisionError reports a precision outside [0,1].
func NewInvalidPrecisionError(p float64) error {
	return fmt.Errorf("%w: %v is outside [0,1]", ErrInvalidPrecision, p)
}

// NewFitError wraps a solver problem as a fit failure.
func NewFitError(estimator, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrFitFailure, estimator, reason)
}

func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, reason)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSamplingError reports whether err came from the linked-sample generator's input checks.
func IsSamplingError(err error) bool {
	return errors.Is(err, ErrInsufficientPopulation) ||
		errors.Is(err, ErrInvalidPrecision) ||
		errors.Is(err, ErrInvalidSampleSize)
}

func IsFitFailure(err error) bool {
	return errors.Is(err, ErrFitFailure)
}
