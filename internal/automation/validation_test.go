package automation

import (
	"errors"
	"strings"
	"testing"
)

func validTestAutomation() *Automation {
	return &Automation{
		ID:      GenerateID(),
		Slug:    "quiet-nights",
		Name:    "Quiet Nights",
		Enabled: true,
		Trigger: Trigger{Kind: TriggerPowerSource, Power: "battery"},
		Steps: []Step{
			{Kind: StepFeatureSet, Order: 1, FeatureID: "power_mode", StateName: "quiet"},
			{Kind: StepDelay, Order: 2, DelayMs: 500},
		},
	}
}

func TestValidateAutomation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Automation)
		wantErr error
	}{
		{
			name:   "valid automation",
			mutate: func(*Automation) {},
		},
		{
			name:    "empty name",
			mutate:  func(a *Automation) { a.Name = "" },
			wantErr: ErrInvalidName,
		},
		{
			name:    "name too long",
			mutate:  func(a *Automation) { a.Name = strings.Repeat("x", 129) },
			wantErr: ErrInvalidName,
		},
		{
			name:    "bad slug characters",
			mutate:  func(a *Automation) { a.Slug = "Quiet Nights!" },
			wantErr: ErrInvalidSlug,
		},
		{
			name:    "no steps",
			mutate:  func(a *Automation) { a.Steps = nil },
			wantErr: ErrNoSteps,
		},
		{
			name: "too many steps",
			mutate: func(a *Automation) {
				a.Steps = make([]Step, maxSteps+1)
				for i := range a.Steps {
					a.Steps[i] = Step{Kind: StepDelay, Order: i + 1, DelayMs: 1}
				}
			},
			wantErr: ErrInvalidStep,
		},
		{
			name: "duplicate step order",
			mutate: func(a *Automation) {
				a.Steps[1].Order = 1
			},
			wantErr: ErrInvalidStep,
		},
		{
			name: "descending step order",
			mutate: func(a *Automation) {
				a.Steps[0].Order = 5
			},
			wantErr: ErrInvalidStep,
		},
		{
			name: "unknown step kind passes validation",
			mutate: func(a *Automation) {
				a.Steps = append(a.Steps, Step{Kind: "levitate", Order: 3})
			},
		},
		{
			name: "feature_set missing feature id",
			mutate: func(a *Automation) {
				a.Steps[0].FeatureID = ""
			},
			wantErr: ErrInvalidStep,
		},
		{
			name: "feature_set missing state name",
			mutate: func(a *Automation) {
				a.Steps[0].StateName = ""
			},
			wantErr: ErrInvalidStep,
		},
		{
			name: "delay too long",
			mutate: func(a *Automation) {
				a.Steps[1].DelayMs = maxDelayMS + 1
			},
			wantErr: ErrInvalidStep,
		},
		{
			name: "negative delay",
			mutate: func(a *Automation) {
				a.Steps[1].DelayMs = -1
			},
			wantErr: ErrInvalidStep,
		},
		{
			name: "macro_replay missing macro id",
			mutate: func(a *Automation) {
				a.Steps = []Step{{Kind: StepMacroReplay, Order: 1}}
			},
			wantErr: ErrInvalidStep,
		},
		{
			name: "unknown trigger kind",
			mutate: func(a *Automation) {
				a.Trigger = Trigger{Kind: "lunar_eclipse"}
			},
			wantErr: ErrInvalidTrigger,
		},
		{
			name: "process trigger missing process name",
			mutate: func(a *Automation) {
				a.Trigger = Trigger{Kind: TriggerProcessStarted}
			},
			wantErr: ErrInvalidTrigger,
		},
		{
			name: "power trigger with bad source",
			mutate: func(a *Automation) {
				a.Trigger = Trigger{Kind: TriggerPowerSource, Power: "solar"}
			},
			wantErr: ErrInvalidTrigger,
		},
		{
			name: "feature_state trigger missing state",
			mutate: func(a *Automation) {
				a.Trigger = Trigger{Kind: TriggerFeatureState, FeatureID: "power_mode"}
			},
			wantErr: ErrInvalidTrigger,
		},
		{
			name: "manual trigger needs no params",
			mutate: func(a *Automation) {
				a.Trigger = Trigger{Kind: TriggerManual}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validTestAutomation()
			tt.mutate(a)
			err := ValidateAutomation(a)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateAutomation() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAutomation() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Gaming Profile", "gaming-profile"},
		{"punctuation stripped", "Max Power!!", "max-power"},
		{"collapse separators", "a  --  b", "a-b"},
		{"already clean", "quiet-nights", "quiet-nights"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateSlug(tt.in); got != tt.want {
				t.Errorf("GenerateSlug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if id == "" {
			t.Fatal("GenerateID() returned empty string")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("GenerateID() produced duplicate %q", id)
		}
		seen[id] = struct{}{}
	}
}
