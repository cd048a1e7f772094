package mqtt

import "fmt"

// Topic prefixes for the Slate MQTT hierarchy.
//
// All topics use the flat scheme: slate/{category}/{id}/{leaf}
const (
	// TopicPrefix is the base for all Slate topics.
	TopicPrefix = "slate"

	// TopicPrefixFeature is the base for hardware feature topics.
	TopicPrefixFeature = "slate/feature"

	// TopicPrefixAutomation is the base for automation topics.
	TopicPrefixAutomation = "slate/automation"

	// TopicPrefixMacro is the base for macro topics.
	TopicPrefixMacro = "slate/macro"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "slate/system"
)

// Topics provides builders for Slate MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.FeatureState("power_mode")
//	// Returns: "slate/feature/power_mode/state"
type Topics struct{}

// FeatureState returns the topic for feature state updates.
// Published retained so new subscribers see the current state.
//
// Example: slate/feature/power_mode/state
func (Topics) FeatureState(featureID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixFeature, featureID)
}

// FeatureSet returns the topic for external feature set commands.
//
// Example: slate/feature/keyboard_backlight/set
func (Topics) FeatureSet(featureID string) string {
	return fmt.Sprintf("%s/%s/set", TopicPrefixFeature, featureID)
}

// AllFeatureStates returns a wildcard subscription matching every
// feature state topic.
//
// Example: slate/feature/+/state
func (Topics) AllFeatureStates() string {
	return TopicPrefixFeature + "/+/state"
}

// AllFeatureCommands returns a wildcard subscription matching every
// feature set topic.
//
// Example: slate/feature/+/set
func (Topics) AllFeatureCommands() string {
	return TopicPrefixFeature + "/+/set"
}

// AutomationExecution returns the topic for automation execution results.
//
// Example: slate/automation/gaming-profile/execution
func (Topics) AutomationExecution(automationID string) string {
	return fmt.Sprintf("%s/%s/execution", TopicPrefixAutomation, automationID)
}

// AutomationRun returns the topic for manual automation run requests.
//
// Example: slate/automation/gaming-profile/run
func (Topics) AutomationRun(automationID string) string {
	return fmt.Sprintf("%s/%s/run", TopicPrefixAutomation, automationID)
}

// AllAutomationRuns returns a wildcard subscription matching every
// automation run topic.
//
// Example: slate/automation/+/run
func (Topics) AllAutomationRuns() string {
	return TopicPrefixAutomation + "/+/run"
}

// MacroStatus returns the topic for macro recorder/player status updates.
//
// Example: slate/macro/status
func (Topics) MacroStatus() string {
	return TopicPrefixMacro + "/status"
}

// MacroInject returns the topic replayed input events are published
// on. A session agent subscribes and performs the OS-level injection.
//
// Example: slate/macro/inject
func (Topics) MacroInject() string {
	return TopicPrefixMacro + "/inject"
}

// SystemStatus returns the topic for daemon online/offline status.
// Used for the Last Will and Testament and graceful shutdown messages.
//
// Example: slate/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// SystemEvent returns the topic for system-level events such as power
// source changes and foreground process transitions.
//
// Example: slate/system/event/power_source
func (Topics) SystemEvent(kind string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixSystem, kind)
}
