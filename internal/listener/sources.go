package listener

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/earnest-s/slate-core/internal/feature"
	"github.com/earnest-s/slate-core/internal/procwatch"
)

// ErrSourceRunning indicates Start was called on an already started source.
var ErrSourceRunning = errors.New("listener: source already started")

// =============================================================================
// Polling Source
// =============================================================================

// PollSource produces events by sampling a function at a fixed
// interval. The first sample runs immediately on Start so subscribers
// see the current value without waiting a full interval.
//
// Sample errors are logged and the tick skipped; production continues.
type PollSource[E comparable] struct {
	name     string
	interval time.Duration
	sample   func(ctx context.Context) (E, error)
	logger   Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPollSource creates a polling source around the sample function.
func NewPollSource[E comparable](name string, interval time.Duration, sample func(ctx context.Context) (E, error)) *PollSource[E] {
	return &PollSource[E]{
		name:     name,
		interval: interval,
		sample:   sample,
		logger:   noopLogger{},
	}
}

// SetLogger wires a logger for sample diagnostics.
func (p *PollSource[E]) SetLogger(l Logger) { p.logger = l }

// Start begins the polling loop.
func (p *PollSource[E]) Start(ctx context.Context, emit func(E)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return fmt.Errorf("%w: %s", ErrSourceRunning, p.name)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(loopCtx, emit)
	return nil
}

// Stop halts the polling loop, bounded by the context deadline.
func (p *PollSource[E]) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stopping source %s: %w", p.name, ctx.Err())
	}
}

// loop samples until cancelled.
func (p *PollSource[E]) loop(ctx context.Context, emit func(E)) {
	defer close(p.done)

	p.tick(ctx, emit)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, emit)
		}
	}
}

// tick performs one sample and emits the value.
func (p *PollSource[E]) tick(ctx context.Context, emit func(E)) {
	value, err := p.sample(ctx)
	if err != nil {
		p.logger.Warn("source sample failed", "source", p.name, "error", err)
		return
	}
	emit(value)
}

// =============================================================================
// Feature State Source
// =============================================================================

// NewFeatureSource creates a source that polls a feature's state.
// Combined with the listener's de-dup, subscribers only see changes.
func NewFeatureSource(f feature.Feature, interval time.Duration) *PollSource[feature.State] {
	return NewPollSource("feature:"+f.ID(), interval, f.CurrentState)
}

// =============================================================================
// Power Supply Source
// =============================================================================

// PowerState identifies the active power source.
type PowerState string

const (
	PowerAC      PowerState = "ac"
	PowerBattery PowerState = "battery"
)

// NewPowerSource creates a source that polls the AC adapter's sysfs
// online file, typically /sys/class/power_supply/ADP0/online.
func NewPowerSource(onlinePath string, interval time.Duration) *PollSource[PowerState] {
	sample := func(_ context.Context) (PowerState, error) {
		data, err := os.ReadFile(onlinePath)
		if err != nil {
			return "", fmt.Errorf("reading power supply state: %w", err)
		}
		if strings.TrimSpace(string(data)) == "1" {
			return PowerAC, nil
		}
		return PowerBattery, nil
	}
	return NewPollSource("power_source", interval, sample)
}

// =============================================================================
// Process Source
// =============================================================================

// ProcessSource produces process start/stop transitions by running a
// proc filesystem watcher for as long as subscribers exist. Each
// activation creates a fresh watcher so the baseline is re-primed.
type ProcessSource struct {
	procRoot string
	interval time.Duration
	logger   Logger

	mu      sync.Mutex
	watcher *procwatch.Watcher
}

// NewProcessSource creates a process transition source over the given
// proc root, typically "/proc".
func NewProcessSource(procRoot string, interval time.Duration) *ProcessSource {
	return &ProcessSource{
		procRoot: procRoot,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger wires a logger for watcher diagnostics.
func (s *ProcessSource) SetLogger(l Logger) { s.logger = l }

// Start creates and starts a watcher that forwards events to emit.
func (s *ProcessSource) Start(ctx context.Context, emit func(procwatch.Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return fmt.Errorf("%w: process", ErrSourceRunning)
	}

	w := procwatch.New(s.procRoot, s.interval)
	w.OnEvent(emit)

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting process watcher: %w", err)
	}

	s.watcher = w
	return nil
}

// Stop halts the watcher and discards it.
func (s *ProcessSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Stop(ctx)
}
