package automation

import "time"

// TriggerKind identifies how an automation is fired.
type TriggerKind string

const (
	TriggerManual         TriggerKind = "manual"
	TriggerProcessStarted TriggerKind = "process_started"
	TriggerProcessStopped TriggerKind = "process_stopped"
	TriggerPowerSource    TriggerKind = "power_source"
	TriggerFeatureState   TriggerKind = "feature_state"
)

// AllTriggerKinds returns every valid trigger kind.
func AllTriggerKinds() []TriggerKind {
	return []TriggerKind{
		TriggerManual,
		TriggerProcessStarted,
		TriggerProcessStopped,
		TriggerPowerSource,
		TriggerFeatureState,
	}
}

// Trigger binds an automation to the event that fires it.
//
// Exactly one parameter set applies per kind: Process for the process
// kinds, Power for power_source, FeatureID and StateName for
// feature_state. Manual triggers carry no parameters.
type Trigger struct {
	Kind TriggerKind `json:"kind"`

	// Process is the process name to watch (process_started/stopped).
	Process string `json:"process,omitempty"`

	// Power is the power source that fires the trigger: "ac" or
	// "battery" (power_source).
	Power string `json:"power,omitempty"`

	// FeatureID and StateName fire when the feature transitions to the
	// named state (feature_state).
	FeatureID string `json:"feature_id,omitempty"`
	StateName string `json:"state_name,omitempty"`
}

// Step kinds understood by the step factory. Steps with a kind outside
// this set are skipped at execution time with a warning; they are not a
// validation error, so definitions survive daemon downgrades.
const (
	StepFeatureSet  = "feature_set"
	StepDelay       = "delay"
	StepMacroReplay = "macro_replay"
)

// Step is one action within an automation pipeline.
//
// Kind selects the parameter set: FeatureID and StateName for
// feature_set, DelayMs for delay, MacroID for macro_replay. Steps
// execute in strictly ascending Order.
type Step struct {
	Kind  string `json:"kind"`
	Order int    `json:"order"`

	// feature_set parameters
	FeatureID string `json:"feature_id,omitempty"`
	StateName string `json:"state_name,omitempty"`

	// delay parameters
	DelayMs int64 `json:"delay_ms,omitempty"`

	// macro_replay parameters
	MacroID string `json:"macro_id,omitempty"`
}

// Automation is a trigger-bound pipeline of steps.
type Automation struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`

	Trigger Trigger `json:"trigger"`
	Steps   []Step  `json:"steps"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Automation.
// The steps slice is cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (a *Automation) DeepCopy() *Automation {
	if a == nil {
		return nil
	}

	cpy := *a
	if a.Steps != nil {
		cpy.Steps = make([]Step, len(a.Steps))
		copy(cpy.Steps, a.Steps)
	}
	return &cpy
}

// ExecutionStatus represents the state of an automation execution.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"    // A step failed; later steps skipped
	StatusCancelled ExecutionStatus = "cancelled" // Context cancelled mid-execution
)

// StepFailure records the step that halted an execution.
type StepFailure struct {
	StepIndex int    `json:"step_index"`
	Kind      string `json:"kind"`
	ErrorMsg  string `json:"error_message"`
}

// Execution tracks a single run of an automation.
//
// Steps run sequentially; a failure halts the pipeline with no
// rollback, so StepsCompleted counts the steps whose effects persist.
type Execution struct {
	ID           string      `json:"id"`
	AutomationID string      `json:"automation_id"`
	TriggerKind  TriggerKind `json:"trigger_kind"`

	Status         ExecutionStatus `json:"status"`
	StepsTotal     int             `json:"steps_total"`
	StepsCompleted int             `json:"steps_completed"`
	StepsSkipped   int             `json:"steps_skipped"`
	Failure        *StepFailure    `json:"failure,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMS *int       `json:"duration_ms,omitempty"`
}
