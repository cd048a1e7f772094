package listener

import "errors"

// Domain-specific errors for listener operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrActivation indicates the underlying source failed to start.
	// The subscription that triggered activation is rolled back.
	ErrActivation = errors.New("listener: source activation failed")

	// ErrUnknownToken indicates an unsubscribe for a token that was
	// never issued or has already been released.
	ErrUnknownToken = errors.New("listener: unknown subscription token")

	// ErrClosed indicates the listener has been shut down and accepts
	// no further subscriptions.
	ErrClosed = errors.New("listener: closed")
)
