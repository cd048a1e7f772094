// Package feature defines the hardware capability contract and the
// built-in Legion features.
//
// A Feature is a named capability with a small discrete state set:
// power mode, GPU working mode, keyboard backlight, battery
// conservation, Fn lock, and touchpad lock. All built-ins wrap a single
// firmware attribute through acpi.Controller; AttributeFeature carries
// the shared register-to-state mapping.
//
// The Registry is the daemon's single entry point for feature access.
// It resolves state names, applies changes, and fans successful
// transitions out to MQTT, telemetry, and in-process subscribers such
// as automation triggers.
//
// Contract highlights:
//   - IsSupported never errors; probe failures read as "unsupported"
//   - SetState is idempotent; re-applying the current state is a no-op
//   - States compare by value, names are for humans and payloads
package feature
