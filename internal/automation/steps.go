package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/earnest-s/slate-core/internal/feature"
)

// FeatureSetter is the interface the step factory needs from the
// feature package. Satisfied by *feature.Registry.
type FeatureSetter interface {
	// SetState resolves the named state on the identified feature and
	// applies it.
	SetState(ctx context.Context, featureID, stateName string) (feature.State, error)
}

// MacroReplayer is the interface the step factory needs for macro
// steps. Satisfied by *macro.Runner.
type MacroReplayer interface {
	// Replay loads the sequence by ID and plays it to completion.
	Replay(ctx context.Context, macroID string) error
}

// RuntimeStep is an executable pipeline step built from a Step
// definition.
type RuntimeStep interface {
	// Kind returns the step's discriminator for logging.
	Kind() string

	// Execute performs the step. Blocking steps honour ctx cancellation.
	Execute(ctx context.Context) error
}

// StepFactory builds runtime steps from definitions. The closed set of
// known kinds lives here; Build reports unknown kinds so the engine can
// skip them instead of failing the pipeline.
type StepFactory struct {
	features FeatureSetter
	macros   MacroReplayer
}

// NewStepFactory creates a factory over the given collaborators.
// Macros may be nil; macro_replay steps then fail at execution with a
// clear error rather than being skipped.
func NewStepFactory(features FeatureSetter, macros MacroReplayer) *StepFactory {
	return &StepFactory{
		features: features,
		macros:   macros,
	}
}

// Build translates a step definition into its runtime form.
// The second return value reports whether the kind is known; unknown
// kinds return a nil step and false.
func (f *StepFactory) Build(step Step) (RuntimeStep, bool) {
	switch step.Kind {
	case StepFeatureSet:
		return &featureSetStep{
			features:  f.features,
			featureID: step.FeatureID,
			stateName: step.StateName,
		}, true

	case StepDelay:
		return &delayStep{duration: time.Duration(step.DelayMs) * time.Millisecond}, true

	case StepMacroReplay:
		return &macroReplayStep{
			macros:  f.macros,
			macroID: step.MacroID,
		}, true

	default:
		return nil, false
	}
}

// featureSetStep applies a named state to a feature.
type featureSetStep struct {
	features  FeatureSetter
	featureID string
	stateName string
}

func (s *featureSetStep) Kind() string { return StepFeatureSet }

func (s *featureSetStep) Execute(ctx context.Context) error {
	if _, err := s.features.SetState(ctx, s.featureID, s.stateName); err != nil {
		return fmt.Errorf("setting %s to %s: %w", s.featureID, s.stateName, err)
	}
	return nil
}

// delayStep pauses the pipeline for a fixed duration.
type delayStep struct {
	duration time.Duration
}

func (s *delayStep) Kind() string { return StepDelay }

func (s *delayStep) Execute(ctx context.Context) error {
	timer := time.NewTimer(s.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// macroReplayStep replays a stored macro sequence.
type macroReplayStep struct {
	macros  MacroReplayer
	macroID string
}

func (s *macroReplayStep) Kind() string { return StepMacroReplay }

func (s *macroReplayStep) Execute(ctx context.Context) error {
	if s.macros == nil {
		return fmt.Errorf("%w: no macro runner configured", ErrInvalidStep)
	}
	if err := s.macros.Replay(ctx, s.macroID); err != nil {
		return fmt.Errorf("replaying macro %s: %w", s.macroID, err)
	}
	return nil
}
