package macro

import (
	"errors"
	"testing"
	"time"
)

// stepClock returns a Clock that yields the given offsets in order.
func stepClock(offsetsMs ...int64) Clock {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	return func() time.Time {
		if i >= len(offsetsMs) {
			i = len(offsetsMs) - 1
		}
		t := base.Add(time.Duration(offsetsMs[i]) * time.Millisecond)
		i++
		return t
	}
}

func TestRecorderDelays(t *testing.T) {
	// Captures at t+0, t+120, t+220 must store delays 0, 120, 100.
	r := NewRecorder(stepClock(0, 120, 220))

	if err := r.Start("test"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := r.Capture(KeyDown, 30+i, 1); err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
	}

	seq, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	want := []int64{0, 120, 100}
	if len(seq.Events) != len(want) {
		t.Fatalf("events = %d, want %d", len(seq.Events), len(want))
	}
	for i, delay := range want {
		if seq.Events[i].DelayMs != delay {
			t.Errorf("event %d delay = %d, want %d", i, seq.Events[i].DelayMs, delay)
		}
	}
}

func TestRecorderTimestampsUseClock(t *testing.T) {
	// One capture at t+0, Stop at t+500: the sequence timestamps must
	// come from the injected clock, not the wall clock.
	r := NewRecorder(stepClock(0, 500))

	if err := r.Start("test"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Capture(KeyDown, 30, 1); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	seq, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(500 * time.Millisecond)
	if !seq.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", seq.CreatedAt, want)
	}
	if !seq.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", seq.UpdatedAt, want)
	}
}

func TestRecorderLifecycle(t *testing.T) {
	r := NewRecorder(nil)

	if err := r.Capture(KeyDown, 30, 1); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Capture() before Start error = %v, want ErrNotRecording", err)
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop() before Start error = %v, want ErrNotRecording", err)
	}

	if err := r.Start("first"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !r.Recording() {
		t.Error("Recording() = false during recording")
	}
	if err := r.Start("second"); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRecording", err)
	}

	seq, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if seq.Name != "first" {
		t.Errorf("sequence name = %q, want first", seq.Name)
	}
	if seq.ID == "" {
		t.Error("sequence ID is empty")
	}
	if r.Recording() {
		t.Error("Recording() = true after Stop()")
	}
}

func TestRecorderRestartDiscardsPrevious(t *testing.T) {
	r := NewRecorder(stepClock(0, 100, 0, 50))

	if err := r.Start("one"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_ = r.Capture(KeyDown, 30, 1)
	_ = r.Capture(KeyUp, 30, 0)
	if _, err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if err := r.Start("two"); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	_ = r.Capture(KeyDown, 31, 1)
	_ = r.Capture(KeyUp, 31, 0)

	seq, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(seq.Events) != 2 {
		t.Errorf("events = %d, want 2", len(seq.Events))
	}
	if seq.Events[0].DelayMs != 0 {
		t.Errorf("first delay = %d, want 0 (fresh recording)", seq.Events[0].DelayMs)
	}
}

func TestSequenceDuration(t *testing.T) {
	seq := Sequence{Events: []Event{
		{DelayMs: 0},
		{DelayMs: 120},
		{DelayMs: 100},
	}}
	if got := seq.Duration(); got != 220*time.Millisecond {
		t.Errorf("Duration() = %v, want 220ms", got)
	}
}

func TestSequenceDeepCopy(t *testing.T) {
	seq := Sequence{Events: []Event{{Kind: KeyDown, Code: 30}}}

	dup := seq.DeepCopy()
	dup.Events[0].Code = 99

	if seq.Events[0].Code != 30 {
		t.Error("DeepCopy() shares event slice with original")
	}
}
