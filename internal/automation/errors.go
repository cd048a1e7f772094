package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when an automation ID does not exist.
	ErrNotFound = errors.New("automation: not found")

	// ErrExists is returned when creating an automation with an ID or
	// slug that already exists.
	ErrExists = errors.New("automation: already exists")

	// ErrDisabled is returned when attempting to run a disabled automation.
	ErrDisabled = errors.New("automation: disabled")

	// ErrInvalid is returned when automation validation fails.
	ErrInvalid = errors.New("automation: invalid")

	// ErrInvalidStep is returned when a pipeline step is invalid.
	ErrInvalidStep = errors.New("automation: invalid step")

	// ErrInvalidTrigger is returned when a trigger definition is invalid.
	ErrInvalidTrigger = errors.New("automation: invalid trigger")

	// ErrInvalidName is returned when a name is empty or too long.
	ErrInvalidName = errors.New("automation: invalid name")

	// ErrInvalidSlug is returned when a slug format is invalid.
	ErrInvalidSlug = errors.New("automation: invalid slug")

	// ErrNoSteps is returned when an automation has no steps defined.
	ErrNoSteps = errors.New("automation: no steps")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("automation: execution not found")
)
