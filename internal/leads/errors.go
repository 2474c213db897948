package leads

import "errors"

var (
	// ErrInvalidInput marks an empty or unparseable URL handed to an audit.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProviderFailure marks a discovery provider that failed.
	ErrProviderFailure = errors.New("provider failure")
	// ErrNetworkFailure marks a fetch that failed or timed out.
	ErrNetworkFailure = errors.New("network failure")
	// ErrUpstreamUnavailable marks an exhausted set of geodata endpoints.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrPersistence marks a store failure during upsert.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotFound is returned by Store lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrQueueClosed is returned once the queue is closed and drained.
	ErrQueueClosed = errors.New("queue closed")
)
