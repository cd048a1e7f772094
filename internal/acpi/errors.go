package acpi

import "errors"

// Sentinel errors for firmware attribute access.
// Use errors.Is() to check for these in calling code.
var (
	// ErrAttributeNotFound indicates the platform does not expose the
	// requested attribute. Feature probes map this to "unsupported".
	ErrAttributeNotFound = errors.New("acpi: attribute not found")

	// ErrAttributeReadOnly indicates the firmware rejected a write.
	ErrAttributeReadOnly = errors.New("acpi: attribute is read-only")

	// ErrInvalidValue indicates the attribute file contained data that
	// could not be parsed as an integer.
	ErrInvalidValue = errors.New("acpi: invalid attribute value")
)
