package macro

import "errors"

// Domain-specific errors for macro operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAlreadyRecording indicates Start was called while a recording
	// is in progress.
	ErrAlreadyRecording = errors.New("macro: recording already in progress")

	// ErrNotRecording indicates Capture or Stop was called without an
	// active recording.
	ErrNotRecording = errors.New("macro: not recording")

	// ErrEmptySequence indicates a replay of a sequence with no events.
	ErrEmptySequence = errors.New("macro: sequence has no events")

	// ErrReplayActive indicates a replay was requested while another
	// replay is running.
	ErrReplayActive = errors.New("macro: replay already in progress")

	// ErrInjection indicates the injector failed to deliver an event.
	ErrInjection = errors.New("macro: event injection failed")

	// ErrNotFound indicates no stored sequence with the given ID.
	ErrNotFound = errors.New("macro: sequence not found")
)
