package feature

import "context"

// State is one setting a hardware feature can hold.
//
// Name is the stable identifier used in automations, MQTT payloads, and
// the API. Value is the firmware register value backing the state.
// States compare by value equality.
type State struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Feature is the contract every hardware capability implements.
//
// A feature is a named hardware capability with a small, discrete set of
// states. Implementations wrap a firmware attribute and translate
// between register values and named states.
//
// Implementations must be safe for concurrent use.
type Feature interface {
	// ID returns the stable machine identifier (e.g., "power_mode").
	ID() string

	// DisplayName returns the human-readable name (e.g., "Power Mode").
	DisplayName() string

	// IsSupported reports whether the current hardware exposes this
	// feature. Probe failures are coerced to false; this method never
	// returns an error and never panics.
	IsSupported(ctx context.Context) bool

	// AllStates returns every state this feature can hold, in a stable
	// order. The slice is a copy; callers may mutate it freely.
	AllStates() []State

	// CurrentState returns the state the hardware currently holds.
	//
	// Returns ErrUnsupported if the feature is not present, or
	// ErrUnknownState if the register holds a value outside AllStates.
	CurrentState(ctx context.Context) (State, error)

	// SetState moves the hardware to the given state.
	//
	// Setting the state the feature already holds succeeds without
	// touching the hardware. Returns ErrUnsupported if the feature is
	// not present and ErrUnknownState if the state is not one of
	// AllStates (matched by value).
	SetState(ctx context.Context, state State) error
}
