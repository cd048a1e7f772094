package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/earnest-s/slate-core/internal/feature"
)

// fakeFeatures records SetState calls and can fail on demand.
type fakeFeatures struct {
	mu      sync.Mutex
	calls   []string
	failOn  string
	blockMs int
}

func (f *fakeFeatures) SetState(_ context.Context, featureID, stateName string) (feature.State, error) {
	if f.blockMs > 0 {
		time.Sleep(time.Duration(f.blockMs) * time.Millisecond)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if featureID == f.failOn {
		return feature.State{}, errors.New("firmware rejected write")
	}
	f.calls = append(f.calls, featureID+"="+stateName)
	return feature.State{Name: stateName}, nil
}

func (f *fakeFeatures) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// fakeMacros records replayed macro IDs.
type fakeMacros struct {
	mu     sync.Mutex
	played []string
}

func (f *fakeMacros) Replay(_ context.Context, macroID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, macroID)
	return nil
}

// newTestEngine wires an engine with in-memory collaborators and one
// seeded automation.
func newTestEngine(t *testing.T, a *Automation) (*Engine, *mockRepository, *fakeFeatures, *fakeMacros) {
	t.Helper()

	repo := newMockRepository()
	registry := NewRegistry(repo)
	features := &fakeFeatures{}
	macros := &fakeMacros{}

	if a != nil {
		if err := registry.Create(context.Background(), a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	engine := NewEngine(registry, NewStepFactory(features, macros), repo, nil)
	return engine, repo, features, macros
}

func testAutomation() *Automation {
	return &Automation{
		ID:      "auto-1",
		Name:    "Gaming Profile",
		Enabled: true,
		Trigger: Trigger{Kind: TriggerManual},
		Steps: []Step{
			{Kind: StepFeatureSet, FeatureID: "power_mode", StateName: "performance"},
			{Kind: StepFeatureSet, FeatureID: "keyboard_backlight", StateName: "high"},
			{Kind: StepMacroReplay, MacroID: "macro-1"},
		},
	}
}

func TestRunCompletes(t *testing.T) {
	engine, repo, features, macros := newTestEngine(t, testAutomation())

	exec, err := engine.Run(context.Background(), "auto-1", TriggerManual)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if exec.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", exec.Status)
	}
	if exec.StepsCompleted != 3 || exec.StepsSkipped != 0 {
		t.Errorf("completed=%d skipped=%d, want 3/0", exec.StepsCompleted, exec.StepsSkipped)
	}

	want := []string{"power_mode=performance", "keyboard_backlight=high"}
	got := features.callLog()
	if len(got) != len(want) {
		t.Fatalf("feature calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("feature calls = %v, want %v", got, want)
			break
		}
	}
	if len(macros.played) != 1 || macros.played[0] != "macro-1" {
		t.Errorf("macros played = %v, want [macro-1]", macros.played)
	}

	// Final record persisted.
	stored, err := repo.GetExecution(context.Background(), exec.ID)
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if stored.Status != StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
}

func TestRunExecutesInAscendingOrder(t *testing.T) {
	a := &Automation{
		ID:      "auto-1",
		Name:    "Ordered",
		Enabled: true,
		Trigger: Trigger{Kind: TriggerManual},
		// Defined out of order; Order fields decide.
		Steps: []Step{
			{Kind: StepFeatureSet, Order: 3, FeatureID: "c", StateName: "on"},
			{Kind: StepFeatureSet, Order: 1, FeatureID: "a", StateName: "on"},
			{Kind: StepFeatureSet, Order: 2, FeatureID: "b", StateName: "on"},
		},
	}
	engine, _, features, _ := newTestEngine(t, a)

	if _, err := engine.Run(context.Background(), "auto-1", TriggerManual); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"a=on", "b=on", "c=on"}
	got := features.callLog()
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("call order = %v, want %v", got, want)
		}
	}
}

func TestRunHaltsOnFailure(t *testing.T) {
	engine, _, features, macros := newTestEngine(t, testAutomation())
	features.failOn = "keyboard_backlight"

	exec, err := engine.Run(context.Background(), "auto-1", TriggerManual)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if exec.Status != StatusFailed {
		t.Errorf("status = %s, want failed", exec.Status)
	}
	if exec.StepsCompleted != 1 {
		t.Errorf("completed = %d, want 1 (first step stays applied)", exec.StepsCompleted)
	}
	if exec.StepsSkipped != 1 {
		t.Errorf("skipped = %d, want 1 (halt skips the macro step)", exec.StepsSkipped)
	}
	if exec.Failure == nil || exec.Failure.StepIndex != 1 {
		t.Errorf("failure = %+v, want step index 1", exec.Failure)
	}

	// No rollback: the first step's effect stands.
	if got := features.callLog(); len(got) != 1 || got[0] != "power_mode=performance" {
		t.Errorf("feature calls = %v, want [power_mode=performance]", got)
	}
	if len(macros.played) != 0 {
		t.Errorf("macros played = %v, want none after halt", macros.played)
	}
}

func TestRunSkipsUnknownStepKind(t *testing.T) {
	a := testAutomation()
	a.Steps = []Step{
		{Kind: StepFeatureSet, Order: 1, FeatureID: "power_mode", StateName: "quiet"},
		{Kind: "hologram_projection", Order: 2},
		{Kind: StepFeatureSet, Order: 3, FeatureID: "fn_lock", StateName: "on"},
	}
	engine, _, features, _ := newTestEngine(t, a)

	exec, err := engine.Run(context.Background(), "auto-1", TriggerManual)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if exec.Status != StatusCompleted {
		t.Errorf("status = %s, want completed (unknown kind must not halt)", exec.Status)
	}
	if exec.StepsCompleted != 2 || exec.StepsSkipped != 1 {
		t.Errorf("completed=%d skipped=%d, want 2/1", exec.StepsCompleted, exec.StepsSkipped)
	}
	if got := features.callLog(); len(got) != 2 {
		t.Errorf("feature calls = %v, want both known steps executed", got)
	}
}

func TestRunDisabled(t *testing.T) {
	a := testAutomation()
	a.Enabled = false
	engine, _, _, _ := newTestEngine(t, a)

	_, err := engine.Run(context.Background(), "auto-1", TriggerManual)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Run() error = %v, want ErrDisabled", err)
	}
}

func TestRunNotFound(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, nil)

	_, err := engine.Run(context.Background(), "missing", TriggerManual)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Run() error = %v, want ErrNotFound", err)
	}
}

func TestRunCancelledDuringDelay(t *testing.T) {
	a := testAutomation()
	a.Steps = []Step{
		{Kind: StepFeatureSet, Order: 1, FeatureID: "power_mode", StateName: "quiet"},
		{Kind: StepDelay, Order: 2, DelayMs: 10000},
		{Kind: StepFeatureSet, Order: 3, FeatureID: "fn_lock", StateName: "on"},
	}
	engine, _, features, _ := newTestEngine(t, a)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	exec, err := engine.Run(ctx, "auto-1", TriggerManual)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if exec.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", exec.Status)
	}
	if exec.StepsCompleted != 1 {
		t.Errorf("completed = %d, want 1", exec.StepsCompleted)
	}
	if got := features.callLog(); len(got) != 1 {
		t.Errorf("feature calls = %v, want only the pre-delay step", got)
	}
}

func TestRunSameAutomationSerializes(t *testing.T) {
	a := testAutomation()
	a.Steps = []Step{
		{Kind: StepFeatureSet, Order: 1, FeatureID: "power_mode", StateName: "performance"},
		{Kind: StepFeatureSet, Order: 2, FeatureID: "keyboard_backlight", StateName: "high"},
	}
	engine, _, features, _ := newTestEngine(t, a)
	features.blockMs = 20 // each step takes ~20ms

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.Run(context.Background(), "auto-1", TriggerManual); err != nil {
				t.Errorf("Run() error = %v", err)
			}
		}()
	}
	wg.Wait()

	// With serialization, the call log is three complete pipelines in
	// sequence, never interleaved.
	got := features.callLog()
	if len(got) != 6 {
		t.Fatalf("feature calls = %d, want 6", len(got))
	}
	for i := 0; i < 6; i += 2 {
		if got[i] != "power_mode=performance" || got[i+1] != "keyboard_backlight=high" {
			t.Errorf("interleaved pipelines: %v", got)
			break
		}
	}
}

func TestRunPublishesAnnouncements(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, testAutomation())

	var (
		mu        sync.Mutex
		published []string
		broadcast int
		metrics   int
	)
	engine.SetMQTT(publishFunc(func(topic string, _ []byte, _ byte, _ bool) error {
		mu.Lock()
		published = append(published, topic)
		mu.Unlock()
		return nil
	}), func(id string) string { return "slate/automation/" + id + "/execution" })
	engine.SetHub(broadcastFunc(func(string, any) {
		mu.Lock()
		broadcast++
		mu.Unlock()
	}))
	engine.SetMetrics(metricFunc(func(string, string, float64, int) {
		mu.Lock()
		metrics++
		mu.Unlock()
	}))

	if _, err := engine.Run(context.Background(), "auto-1", TriggerManual); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(published) != 1 || published[0] != "slate/automation/auto-1/execution" {
		t.Errorf("published = %v", published)
	}
	if broadcast != 1 {
		t.Errorf("broadcasts = %d, want 1", broadcast)
	}
	if metrics != 1 {
		t.Errorf("metric writes = %d, want 1", metrics)
	}
}

// Adapter types for wiring test closures into engine interfaces.

type publishFunc func(topic string, payload []byte, qos byte, retained bool) error

func (f publishFunc) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return f(topic, payload, qos, retained)
}

type broadcastFunc func(channel string, payload any)

func (f broadcastFunc) Broadcast(channel string, payload any) { f(channel, payload) }

type metricFunc func(automationID, status string, durationMs float64, stepsCompleted int)

func (f metricFunc) WriteExecutionMetric(automationID, status string, durationMs float64, stepsCompleted int) {
	f(automationID, status, durationMs, stepsCompleted)
}
