package storage

import "errors"

var (
	// ErrNotFound is returned when a run, deal or progress row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a batch contains a key that is already
	// stored. Observations, runs and deals are never updated in place.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned for records or options a store cannot accept.
	ErrInvalidInput = errors.New("invalid input")
)
