package acpi

import "context"

// Controller provides access to firmware attributes exposed by the
// platform ACPI driver.
//
// Attributes are small integer registers identified by name. On Lenovo
// Legion hardware the kernel driver surfaces these under
// /sys/devices/platform/, one directory per attribute with current_value
// and possible read-only metadata files.
//
// Implementations must be safe for concurrent use.
type Controller interface {
	// Read returns the current value of the named attribute.
	//
	// Returns ErrAttributeNotFound if the platform does not expose the
	// attribute, which callers treat as "feature unsupported".
	Read(ctx context.Context, attribute string) (int, error)

	// Write sets the named attribute to the given value.
	//
	// Writes are synchronous; when Write returns nil the firmware has
	// accepted the value. Returns ErrAttributeNotFound for missing
	// attributes and ErrAttributeReadOnly for attributes the firmware
	// refuses to change.
	Write(ctx context.Context, attribute string, value int) error
}
