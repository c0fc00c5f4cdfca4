package usecase

import "errors"

var (
	// ErrStorage wraps failures of the local store. Unlike name lookup failures,
	// which are recorded in the cache, these propagate to the caller.
	ErrStorage = errors.New("name store failure")

	// ErrNoMetadata means the provider answered but knows no name for the symbol.
	ErrNoMetadata = errors.New("no name found for symbol")
)
