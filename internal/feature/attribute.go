package feature

import (
	"context"
	"fmt"

	"github.com/earnest-s/slate-core/internal/acpi"
)

// AttributeFeature implements Feature over a single firmware attribute.
//
// Every built-in Slate feature follows the same shape: one named
// register, a fixed list of named states, and value-for-value mapping
// between the two. The constructors below bind the known Legion
// attributes to their state tables.
type AttributeFeature struct {
	id          string
	displayName string
	attribute   string
	states      []State
	ctrl        acpi.Controller
}

// NewAttributeFeature creates a feature backed by the named firmware
// attribute. The states slice defines the full state set in display
// order; values must be unique.
func NewAttributeFeature(ctrl acpi.Controller, id, displayName, attribute string, states []State) *AttributeFeature {
	return &AttributeFeature{
		id:          id,
		displayName: displayName,
		attribute:   attribute,
		states:      states,
		ctrl:        ctrl,
	}
}

// ID returns the stable machine identifier.
func (f *AttributeFeature) ID() string { return f.id }

// DisplayName returns the human-readable name.
func (f *AttributeFeature) DisplayName() string { return f.displayName }

// IsSupported probes the firmware attribute. Any failure, including a
// missing attribute, an unreadable file, or a garbled value, reports
// the feature as unsupported.
func (f *AttributeFeature) IsSupported(ctx context.Context) bool {
	defer func() {
		// A probe must never take the daemon down.
		_ = recover()
	}()

	_, err := f.ctrl.Read(ctx, f.attribute)
	return err == nil
}

// AllStates returns a copy of the feature's state set.
func (f *AttributeFeature) AllStates() []State {
	states := make([]State, len(f.states))
	copy(states, f.states)
	return states
}

// CurrentState reads the firmware register and maps it to a named state.
func (f *AttributeFeature) CurrentState(ctx context.Context) (State, error) {
	value, err := f.ctrl.Read(ctx, f.attribute)
	if err != nil {
		return State{}, fmt.Errorf("%w: %s", ErrUnsupported, f.id)
	}

	for _, s := range f.states {
		if s.Value == value {
			return s, nil
		}
	}

	return State{}, fmt.Errorf("%w: %s register holds %d", ErrUnknownState, f.id, value)
}

// SetState writes the state's value to the firmware register.
// Writing the current state is a no-op success.
func (f *AttributeFeature) SetState(ctx context.Context, state State) error {
	if !f.knownState(state) {
		return fmt.Errorf("%w: %s has no state with value %d", ErrUnknownState, f.id, state.Value)
	}

	current, err := f.ctrl.Read(ctx, f.attribute)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupported, f.id)
	}
	if current == state.Value {
		return nil
	}

	if err := f.ctrl.Write(ctx, f.attribute, state.Value); err != nil {
		return fmt.Errorf("setting %s to %d: %w", f.id, state.Value, err)
	}
	return nil
}

// knownState reports whether the state matches one of AllStates by value.
func (f *AttributeFeature) knownState(state State) bool {
	for _, s := range f.states {
		if s.Value == state.Value {
			return true
		}
	}
	return false
}

// =============================================================================
// Built-in Features
// =============================================================================

// Firmware attribute names exposed by the Legion platform driver.
const (
	attrPowerMode           = "power_mode"
	attrGPUWorkingMode      = "gpu_working_mode"
	attrKeyboardBacklight   = "keyboard_backlight"
	attrBatteryConservation = "conservation_mode"
	attrFnLock              = "fn_lock"
	attrTouchpadLock        = "touchpad_lock"
)

// NewPowerMode creates the thermal/power profile feature.
func NewPowerMode(ctrl acpi.Controller) *AttributeFeature {
	return NewAttributeFeature(ctrl, "power_mode", "Power Mode", attrPowerMode, []State{
		{Name: "quiet", Value: 1},
		{Name: "balanced", Value: 2},
		{Name: "performance", Value: 3},
		{Name: "custom", Value: 255},
	})
}

// NewHybridGPU creates the GPU working mode feature. Switching between
// hybrid and discrete takes effect after the next reboot; the register
// reflects the requested mode immediately.
func NewHybridGPU(ctrl acpi.Controller) *AttributeFeature {
	return NewAttributeFeature(ctrl, "hybrid_gpu", "Hybrid GPU Mode", attrGPUWorkingMode, []State{
		{Name: "hybrid", Value: 0},
		{Name: "discrete", Value: 1},
	})
}

// NewKeyboardBacklight creates the keyboard backlight level feature.
func NewKeyboardBacklight(ctrl acpi.Controller) *AttributeFeature {
	return NewAttributeFeature(ctrl, "keyboard_backlight", "Keyboard Backlight", attrKeyboardBacklight, []State{
		{Name: "off", Value: 0},
		{Name: "low", Value: 1},
		{Name: "high", Value: 2},
	})
}

// NewBatteryConservation creates the battery conservation feature,
// which caps charging around 60% to extend battery lifespan.
func NewBatteryConservation(ctrl acpi.Controller) *AttributeFeature {
	return NewAttributeFeature(ctrl, "battery_conservation", "Battery Conservation", attrBatteryConservation, []State{
		{Name: "off", Value: 0},
		{Name: "on", Value: 1},
	})
}

// NewFnLock creates the Fn key lock feature.
func NewFnLock(ctrl acpi.Controller) *AttributeFeature {
	return NewAttributeFeature(ctrl, "fn_lock", "Fn Lock", attrFnLock, []State{
		{Name: "off", Value: 0},
		{Name: "on", Value: 1},
	})
}

// NewTouchpadLock creates the touchpad lock feature.
func NewTouchpadLock(ctrl acpi.Controller) *AttributeFeature {
	return NewAttributeFeature(ctrl, "touchpad_lock", "Touchpad Lock", attrTouchpadLock, []State{
		{Name: "off", Value: 0},
		{Name: "on", Value: 1},
	})
}
