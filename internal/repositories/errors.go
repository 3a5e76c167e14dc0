package repositories

import "errors"

var (
	// ErrInvalidID is returned when a caller-supplied ID is not a well-formed
	// identifier for the backing store.
	ErrInvalidID = errors.New("invalid user id")

	// ErrConnection is returned when the backing store cannot be reached.
	ErrConnection = errors.New("user store unavailable")
)
