package listener

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/earnest-s/slate-core/internal/procwatch"
)

func TestPollSourceEmitsImmediately(t *testing.T) {
	src := NewPollSource("counter", time.Hour, func(_ context.Context) (int, error) {
		return 42, nil
	})

	events := make(chan int, 1)
	if err := src.Start(context.Background(), func(v int) { events <- v }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer stopSource(t, src)

	select {
	case v := <-events:
		if v != 42 {
			t.Errorf("event = %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial sample")
	}
}

func TestPollSourceDoubleStart(t *testing.T) {
	src := NewPollSource("counter", time.Hour, func(_ context.Context) (int, error) {
		return 0, nil
	})

	if err := src.Start(context.Background(), func(int) {}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer stopSource(t, src)

	if err := src.Start(context.Background(), func(int) {}); !errors.Is(err, ErrSourceRunning) {
		t.Errorf("second Start() error = %v, want ErrSourceRunning", err)
	}
}

func TestPollSourceStopIdempotent(t *testing.T) {
	src := NewPollSource("counter", time.Hour, func(_ context.Context) (int, error) {
		return 0, nil
	})

	if err := src.Stop(context.Background()); err != nil {
		t.Errorf("Stop() on idle source error = %v, want nil", err)
	}
}

func TestPowerSource(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    PowerState
	}{
		{"ac online", "1\n", PowerAC},
		{"on battery", "0\n", PowerBattery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "online")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			src := NewPowerSource(path, time.Hour)
			events := make(chan PowerState, 1)
			if err := src.Start(context.Background(), func(s PowerState) { events <- s }); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			defer stopSource(t, src)

			select {
			case got := <-events:
				if got != tt.want {
					t.Errorf("event = %s, want %s", got, tt.want)
				}
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for power state")
			}
		})
	}
}

func TestProcessSourceLifecycle(t *testing.T) {
	src := NewProcessSource(t.TempDir(), 10*time.Millisecond)
	ctx := context.Background()

	if err := src.Start(ctx, func(procwatch.Event) {}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := src.Start(ctx, func(procwatch.Event) {}); !errors.Is(err, ErrSourceRunning) {
		t.Errorf("second Start() error = %v, want ErrSourceRunning", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := src.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := src.Stop(stopCtx); err != nil {
		t.Errorf("Stop() on idle source error = %v, want nil", err)
	}
}

func TestProcessListenerOutlivesSubscriberContext(t *testing.T) {
	root := t.TempDir()
	spawn := func(pid, name string) {
		t.Helper()
		dir := filepath.Join(root, pid)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "comm"), []byte(name+"\n"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	spawn("100", "systemd")

	ln := New[procwatch.Event]("process", NewProcessSource(root, 10*time.Millisecond))
	events := make(chan procwatch.Event, 10)

	// An HTTP request context is a typical subscriber context; it ends
	// long before the subscription does.
	subCtx, cancel := context.WithCancel(context.Background())
	if _, err := ln.Subscribe(subCtx, func(e procwatch.Event) { events <- e }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer func() {
		ctx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		_ = ln.Close(ctx)
	}()
	cancel()

	spawn("200", "steam")

	select {
	case e := <-events:
		if e.Kind != procwatch.ProcessStarted || e.Name != "steam" {
			t.Errorf("event = %+v, want ProcessStarted/steam", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no event after subscriber context cancel; source died with it")
	}

	if got := ln.Status(); got != StatusActive {
		t.Errorf("Status() = %s, want active", got)
	}
}

func stopSource[E comparable](t *testing.T, src *PollSource[E]) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := src.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
