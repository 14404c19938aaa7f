package service

import "errors"

var (
	// ErrVersionIsNotSpecified is returned when the application is started
	// without a build version configured.
	ErrVersionIsNotSpecified = errors.New("app version is not specified")

	// ErrBatchTooLarge is returned when a push batch exceeds the
	// configured maximum. The batch is refused whole, never truncated;
	// the client splits it and retries.
	ErrBatchTooLarge = errors.New("push batch exceeds the configured maximum")

	// ErrCheckpointUnknown is returned when a presented checkpoint cannot
	// be decoded. The client's cursor state is out of protocol sync and
	// only a full pull recovers it.
	ErrCheckpointUnknown = errors.New("sync checkpoint is not recognized")

	// ErrInvalidRequest wraps request-level validation failures: an empty
	// push batch, a negative pull limit, an unknown entity type filter.
	// Per-change shape failures never produce it; those are reported in
	// the response's rejected list instead.
	ErrInvalidRequest = errors.New("invalid sync request")
)
