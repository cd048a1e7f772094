package procwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// EventKind identifies a process transition.
type EventKind string

const (
	// ProcessStarted fires when the first instance of a named process
	// appears.
	ProcessStarted EventKind = "process_started"

	// ProcessStopped fires when the last instance of a named process
	// exits.
	ProcessStopped EventKind = "process_stopped"
)

// Event describes one observed process transition.
type Event struct {
	Kind EventKind
	Name string
	PID  int
}

// Sentinel errors for watcher lifecycle operations.
var (
	ErrAlreadyRunning = errors.New("procwatch: watcher already running")
	ErrNotRunning     = errors.New("procwatch: watcher not running")
)

// Logger defines the logging interface for the watcher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// defaultInterval is used when no poll interval is configured.
const defaultInterval = 2 * time.Second

// Watcher polls the proc filesystem and emits events when named
// processes start or stop.
//
// Events are name-level, not pid-level: a process with several
// instances emits ProcessStarted once when the first instance appears
// and ProcessStopped once when the last instance exits. The first scan
// primes the baseline without emitting events.
type Watcher struct {
	procRoot string
	interval time.Duration
	logger   Logger

	handlerMu sync.RWMutex
	handlers  []func(Event)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// seen maps pid to process name from the previous scan.
	seen map[int]string
}

// Option configures optional watcher collaborators.
type Option func(*Watcher)

// WithLogger wires a logger for scan diagnostics.
func WithLogger(l Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher over the given proc root, typically "/proc".
// Interval controls the polling cadence; zero applies the default.
func New(procRoot string, interval time.Duration, opts ...Option) *Watcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	w := &Watcher{
		procRoot: procRoot,
		interval: interval,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnEvent registers a callback invoked for every process transition.
// Callbacks run on the watcher's goroutine and must not block.
func (w *Watcher) OnEvent(fn func(Event)) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handlers = append(w.handlers, fn)
}

// Start begins polling. The calling goroutine returns immediately.
// The context bounds only this call; the scan loop is detached and
// runs until Stop, so a caller's short-lived context (an HTTP request,
// for example) cannot kill the watcher out from under its subscribers.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	// Prime the baseline so existing processes don't emit start events.
	snapshot, err := w.scan()
	if err != nil {
		return fmt.Errorf("initial process scan: %w", err)
	}
	w.seen = snapshot

	loopCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.loop(loopCtx)
	return nil
}

// Stop halts polling and waits for the scan loop to exit, bounded by
// the context deadline.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrNotRunning
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.mu.Unlock()

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stopping watcher: %w", ctx.Err())
	}
}

// Running reports whether the scan loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// loop is the scan loop. Runs until ctx is cancelled.
func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

// tick performs one scan and emits events for the diff.
func (w *Watcher) tick() {
	snapshot, err := w.scan()
	if err != nil {
		w.logger.Warn("process scan failed", "error", err)
		return
	}

	w.mu.Lock()
	previous := w.seen
	w.seen = snapshot
	w.mu.Unlock()

	for _, event := range diff(previous, snapshot) {
		w.emit(event)
	}
}

// emit delivers an event to all registered handlers.
func (w *Watcher) emit(event Event) {
	w.handlerMu.RLock()
	handlers := make([]func(Event), len(w.handlers))
	copy(handlers, w.handlers)
	w.handlerMu.RUnlock()

	w.logger.Debug("process transition",
		"kind", string(event.Kind),
		"name", event.Name,
		"pid", event.PID,
	)

	for _, fn := range handlers {
		fn(event)
	}
}

// scan reads the proc root and returns a pid-to-name map.
// Processes that vanish mid-scan are skipped silently.
func (w *Watcher) scan() (map[int]string, error) {
	entries, err := os.ReadDir(w.procRoot)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", w.procRoot, err)
	}

	snapshot := make(map[int]string, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		comm, err := os.ReadFile(filepath.Join(w.procRoot, entry.Name(), "comm"))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(comm))
		if name == "" {
			continue
		}
		snapshot[pid] = name
	}

	return snapshot, nil
}

// diff compares two scans and returns name-level transition events.
// A name present in both scans emits nothing even if its pids changed.
func diff(previous, current map[int]string) []Event {
	prevNames := countByName(previous)
	currNames := countByName(current)

	var events []Event

	for pid, name := range current {
		if prevNames[name] == 0 && currNames[name] > 0 {
			events = append(events, Event{Kind: ProcessStarted, Name: name, PID: pid})
			// Only one start event per name even with several new instances.
			prevNames[name] = currNames[name]
		}
	}

	for _, name := range previous {
		if currNames[name] == 0 && prevNames[name] > 0 {
			events = append(events, Event{Kind: ProcessStopped, Name: name})
			prevNames[name] = 0
		}
	}

	return events
}

// countByName aggregates a pid-to-name map into instance counts.
func countByName(snapshot map[int]string) map[string]int {
	counts := make(map[string]int, len(snapshot))
	for _, name := range snapshot {
		counts[name]++
	}
	return counts
}
