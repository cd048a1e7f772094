package feature

import "errors"

// Domain-specific errors for feature operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnsupported indicates the hardware does not expose this feature.
	ErrUnsupported = errors.New("feature: not supported on this hardware")

	// ErrUnknownState indicates a state outside the feature's state set,
	// either requested by a caller or read back from the firmware.
	ErrUnknownState = errors.New("feature: unknown state")

	// ErrNotRegistered indicates no feature with the given ID exists in
	// the registry.
	ErrNotRegistered = errors.New("feature: not registered")
)
