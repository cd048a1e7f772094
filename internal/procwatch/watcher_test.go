package procwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
	"time"
)

// fakeProc creates a fake proc tree with the given pid-to-name entries.
func fakeProc(t *testing.T, procs map[int]string) string {
	t.Helper()

	root := t.TempDir()
	for pid, name := range procs {
		dir := filepath.Join(root, strconv.Itoa(pid))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "comm"), []byte(name+"\n"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	// Non-numeric entries must be ignored by the scanner.
	if err := os.MkdirAll(filepath.Join(root, "sys"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	return root
}

func TestScan(t *testing.T) {
	root := fakeProc(t, map[int]string{
		100: "steam",
		200: "firefox",
	})

	w := New(root, time.Second)
	snapshot, err := w.scan()
	if err != nil {
		t.Fatalf("scan() error = %v", err)
	}

	if len(snapshot) != 2 {
		t.Fatalf("scan() len = %d, want 2", len(snapshot))
	}
	if snapshot[100] != "steam" || snapshot[200] != "firefox" {
		t.Errorf("scan() = %v", snapshot)
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		previous map[int]string
		current  map[int]string
		want     []Event
	}{
		{
			name:     "no change",
			previous: map[int]string{100: "steam"},
			current:  map[int]string{100: "steam"},
			want:     nil,
		},
		{
			name:     "process started",
			previous: map[int]string{},
			current:  map[int]string{100: "steam"},
			want:     []Event{{Kind: ProcessStarted, Name: "steam", PID: 100}},
		},
		{
			name:     "process stopped",
			previous: map[int]string{100: "steam"},
			current:  map[int]string{},
			want:     []Event{{Kind: ProcessStopped, Name: "steam"}},
		},
		{
			name:     "pid change same name",
			previous: map[int]string{100: "steam"},
			current:  map[int]string{150: "steam"},
			want:     nil,
		},
		{
			name:     "second instance no event",
			previous: map[int]string{100: "steam"},
			current:  map[int]string{100: "steam", 101: "steam"},
			want:     nil,
		},
		{
			name:     "one instance remains no event",
			previous: map[int]string{100: "steam", 101: "steam"},
			current:  map[int]string{100: "steam"},
			want:     nil,
		},
		{
			name:     "several new instances single event",
			previous: map[int]string{},
			current:  map[int]string{100: "steam", 101: "steam"},
			want:     []Event{{Kind: ProcessStarted, Name: "steam"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diff(tt.previous, tt.current)

			if len(got) != len(tt.want) {
				t.Fatalf("diff() = %v, want %v", got, tt.want)
			}
			sort.Slice(got, func(i, j int) bool { return got[i].Name < got[j].Name })
			for i, want := range tt.want {
				if got[i].Kind != want.Kind || got[i].Name != want.Name {
					t.Errorf("diff()[%d] = %+v, want %+v", i, got[i], want)
				}
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	root := fakeProc(t, map[int]string{100: "steam"})
	w := New(root, 10*time.Millisecond)
	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !w.Running() {
		t.Error("Running() = false after Start()")
	}

	if err := w.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if w.Running() {
		t.Error("Running() = true after Stop()")
	}

	if err := w.Stop(stopCtx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop() error = %v, want ErrNotRunning", err)
	}
}

func TestBaselineSuppressesStartEvents(t *testing.T) {
	root := fakeProc(t, map[int]string{100: "steam"})
	w := New(root, 10*time.Millisecond)

	events := make(chan Event, 10)
	w.OnEvent(func(e Event) { events <- e })

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = w.Stop(ctx)
	}()

	select {
	case e := <-events:
		t.Errorf("unexpected event for pre-existing process: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoopSurvivesStartContextCancel(t *testing.T) {
	root := fakeProc(t, map[int]string{100: "systemd"})
	w := New(root, 10*time.Millisecond)

	events := make(chan Event, 10)
	w.OnEvent(func(e Event) { events <- e })

	startCtx, cancel := context.WithCancel(context.Background())
	if err := w.Start(startCtx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		ctx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		_ = w.Stop(ctx)
	}()

	// The caller's context ends; the scan loop must keep running.
	cancel()

	dir := filepath.Join(root, "300")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "comm"), []byte("steam\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case e := <-events:
		if e.Kind != ProcessStarted || e.Name != "steam" {
			t.Errorf("event = %+v, want ProcessStarted/steam", e)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher stopped emitting after caller context cancel")
	}

	if !w.Running() {
		t.Error("Running() = false, want true after caller context cancel")
	}
}

func TestStartCancelledContext(t *testing.T) {
	root := fakeProc(t, map[int]string{100: "systemd"})
	w := New(root, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}
	if w.Running() {
		t.Error("Running() = true after failed Start()")
	}
}

func TestDetectsNewProcess(t *testing.T) {
	procs := map[int]string{100: "systemd"}
	root := fakeProc(t, procs)
	w := New(root, 10*time.Millisecond)

	events := make(chan Event, 10)
	w.OnEvent(func(e Event) { events <- e })

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = w.Stop(ctx)
	}()

	// Spawn a new process in the fake tree.
	dir := filepath.Join(root, "300")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "comm"), []byte("steam\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case e := <-events:
		if e.Kind != ProcessStarted || e.Name != "steam" {
			t.Errorf("event = %+v, want ProcessStarted/steam", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for start event")
	}
}
