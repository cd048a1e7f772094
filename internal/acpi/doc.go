// Package acpi abstracts firmware attribute access for hardware feature
// control.
//
// The Controller interface decouples feature logic from the transport.
// SysfsController is the production implementation, talking to the
// kernel platform driver through sysfs attribute files. Tests and
// unsupported platforms substitute in-memory fakes.
package acpi
