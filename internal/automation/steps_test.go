package automation

import (
	"context"
	"testing"
	"time"
)

func TestStepFactoryBuild(t *testing.T) {
	factory := NewStepFactory(&fakeFeatures{}, &fakeMacros{})

	tests := []struct {
		name      string
		step      Step
		wantKnown bool
		wantKind  string
	}{
		{
			name:      "feature set",
			step:      Step{Kind: StepFeatureSet, FeatureID: "power_mode", StateName: "quiet"},
			wantKnown: true,
			wantKind:  StepFeatureSet,
		},
		{
			name:      "delay",
			step:      Step{Kind: StepDelay, DelayMs: 5},
			wantKnown: true,
			wantKind:  StepDelay,
		},
		{
			name:      "macro replay",
			step:      Step{Kind: StepMacroReplay, MacroID: "macro-1"},
			wantKnown: true,
			wantKind:  StepMacroReplay,
		},
		{
			name: "unknown kind",
			step: Step{Kind: "teleport"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, known := factory.Build(tt.step)
			if known != tt.wantKnown {
				t.Fatalf("Build() known = %v, want %v", known, tt.wantKnown)
			}
			if !known {
				return
			}
			if rt.Kind() != tt.wantKind {
				t.Errorf("Kind() = %q, want %q", rt.Kind(), tt.wantKind)
			}
		})
	}
}

func TestFeatureSetStepExecute(t *testing.T) {
	features := &fakeFeatures{}
	factory := NewStepFactory(features, &fakeMacros{})

	rt, _ := factory.Build(Step{Kind: StepFeatureSet, FeatureID: "fn_lock", StateName: "on"})
	if err := rt.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := features.callLog(); len(got) != 1 || got[0] != "fn_lock=on" {
		t.Errorf("calls = %v, want [fn_lock=on]", got)
	}
}

func TestFeatureSetStepFailure(t *testing.T) {
	features := &fakeFeatures{failOn: "fn_lock"}
	factory := NewStepFactory(features, &fakeMacros{})

	rt, _ := factory.Build(Step{Kind: StepFeatureSet, FeatureID: "fn_lock", StateName: "on"})
	if err := rt.Execute(context.Background()); err == nil {
		t.Error("Execute() error = nil, want failure")
	}
}

func TestDelayStepHonorsCancellation(t *testing.T) {
	factory := NewStepFactory(&fakeFeatures{}, &fakeMacros{})
	rt, _ := factory.Build(Step{Kind: StepDelay, DelayMs: 10000})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := rt.Execute(ctx)
	if err == nil {
		t.Error("Execute() error = nil, want context error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Execute() waited %v despite cancellation", elapsed)
	}
}

func TestDelayStepCompletes(t *testing.T) {
	factory := NewStepFactory(&fakeFeatures{}, &fakeMacros{})
	rt, _ := factory.Build(Step{Kind: StepDelay, DelayMs: 10})

	start := time.Now()
	if err := rt.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Execute() returned after %v, want at least 10ms", elapsed)
	}
}

func TestMacroReplayStepExecute(t *testing.T) {
	macros := &fakeMacros{}
	factory := NewStepFactory(&fakeFeatures{}, macros)

	rt, _ := factory.Build(Step{Kind: StepMacroReplay, MacroID: "macro-7"})
	if err := rt.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(macros.played) != 1 || macros.played[0] != "macro-7" {
		t.Errorf("played = %v, want [macro-7]", macros.played)
	}
}
