package macro

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Injector delivers replayed events to the input subsystem.
//
// The production implementation writes to a uinput device; tests
// substitute in-memory fakes.
type Injector interface {
	// Inject delivers one event. An injection is atomic; cancellation
	// takes effect between events, never mid-event.
	Inject(ctx context.Context, event Event) error
}

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// noopLogger is used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

// Player replays recorded sequences through an Injector, honouring the
// recorded inter-event delays.
//
// Timing uses the runtime timer wheel; observed delays land within
// roughly 15ms of the recorded values on an unloaded system. Only one
// replay runs at a time.
type Player struct {
	injector Injector
	logger   Logger

	mu      sync.Mutex
	playing bool
}

// NewPlayer creates a player around the given injector.
func NewPlayer(injector Injector) *Player {
	return &Player{
		injector: injector,
		logger:   noopLogger{},
	}
}

// SetLogger wires a logger for replay diagnostics.
func (p *Player) SetLogger(l Logger) { p.logger = l }

// Playing reports whether a replay is in progress.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Replay plays the sequence from the first event. Each event waits its
// recorded delay, then injects. Cancelling the context interrupts the
// wait and returns ctx.Err(); the event whose delay was interrupted is
// not injected.
func (p *Player) Replay(ctx context.Context, seq Sequence) error {
	if len(seq.Events) == 0 {
		return ErrEmptySequence
	}

	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return ErrReplayActive
	}
	p.playing = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()
	}()

	p.logger.Info("macro replay started",
		"macro_id", seq.ID,
		"events", len(seq.Events),
		"duration_ms", seq.Duration().Milliseconds(),
	)

	for i, event := range seq.Events {
		if err := p.wait(ctx, event.DelayMs); err != nil {
			p.logger.Debug("macro replay cancelled", "macro_id", seq.ID, "at_event", i)
			return err
		}

		if err := p.injector.Inject(ctx, event); err != nil {
			return fmt.Errorf("%w: event %d: %v", ErrInjection, i, err)
		}
	}

	p.logger.Info("macro replay finished", "macro_id", seq.ID)
	return nil
}

// wait blocks for the given delay or until the context is cancelled.
func (p *Player) wait(ctx context.Context, delayMs int64) error {
	if delayMs <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(time.Duration(delayMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
