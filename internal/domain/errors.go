package domain

import "errors"

// Error classes shared by the analysis packages.
// Callers distinguish them with errors.Is; messages carry the detail.
var (
	// ErrValidation is returned when an entity cannot be constructed
	// from the given field values (blank ticker, non-positive timestamp or rate).
	ErrValidation = errors.New("validation error")

	// ErrInvalidArgument is returned when a component precondition is violated:
	// non-positive duration, empty or degenerate input, unsorted input,
	// extrapolation outside the known points.
	ErrInvalidArgument = errors.New("invalid argument")
)
