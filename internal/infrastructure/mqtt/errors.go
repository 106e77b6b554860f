package mqtt

import "errors"

// Domain-specific errors for broker operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConfiguration is returned when the broker URL or node identity is
	// missing or unusable. Not retryable.
	ErrConfiguration = errors.New("mqtt: configuration error")

	// ErrNotConnected is returned when publishing while the connection is
	// down. The message is dropped, not buffered.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrTransport is returned when the broker rejects an operation or the
	// operation times out.
	ErrTransport = errors.New("mqtt: transport error")
)
