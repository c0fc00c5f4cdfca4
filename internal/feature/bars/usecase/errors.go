package usecase

import "errors"

// Error kinds produced by the sync engine. Match them with errors.Is.
// Only ErrStorage aborts a batch; the others are reported per instrument.
var (
	// ErrProviderUnavailable wraps any failure returned by the market provider, timeouts included.
	ErrProviderUnavailable = errors.New("market provider unavailable")

	// ErrEmptyResponse is recorded when the provider answered with no bars.
	ErrEmptyResponse = errors.New("market provider returned no bars")

	// ErrMalformedResponse is recorded when every bar of a non-empty response was rejected by the store.
	ErrMalformedResponse = errors.New("market provider returned only malformed bars")

	// ErrNoData marks an instrument that has nothing in the store after syncing.
	ErrNoData = errors.New("no data available")

	// ErrStorage wraps failures of the local store. These propagate to the caller.
	ErrStorage = errors.New("local store failure")
)
