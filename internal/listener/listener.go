package listener

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Status represents the listener's lifecycle state.
type Status string

const (
	StatusInactive     Status = "inactive"
	StatusActivating   Status = "activating"
	StatusActive       Status = "active"
	StatusDeactivating Status = "deactivating"
)

// Source is the event producer a listener manages. Implementations
// wrap a polling loop or external subscription and push events through
// the emit callback for as long as they are started.
//
// Start and Stop are never called concurrently for the same source;
// the listener serializes lifecycle transitions.
type Source[E comparable] interface {
	// Start begins producing events. It must return promptly; event
	// production happens on the source's own goroutine.
	Start(ctx context.Context, emit func(E)) error

	// Stop halts event production and releases resources, bounded by
	// the context deadline.
	Stop(ctx context.Context) error
}

// Handler receives events from an active listener. Handlers run on the
// source's emit goroutine; panics and long blocking are isolated per
// handler but stall delivery to later handlers.
type Handler[E comparable] func(event E)

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Listener manages a Source's lifecycle by subscriber reference count.
//
// The source runs only while at least one subscriber exists: the first
// Subscribe activates it, the last Unsubscribe deactivates it. With N
// subscribes and M unsubscribes, the source is active exactly when
// N - M > 0. Activation is single-flight; concurrent first subscribers
// share one Start call.
//
// Consecutive identical events are suppressed, so handlers only see
// transitions. The de-dup window resets on deactivation; a fresh
// activation delivers the first event unconditionally.
//
// Thread Safety: all methods are safe for concurrent use.
type Listener[E comparable] struct {
	name   string
	source Source[E]
	logger Logger

	mu           sync.Mutex
	status       Status
	subscribers  map[string]Handler[E]
	activation   chan struct{} // closed when an in-flight activation settles
	deactivation chan struct{} // closed when an in-flight deactivation settles
	activateErr  error
	closed       bool

	lastMu    sync.Mutex
	lastEvent E
	hasLast   bool
}

// Option configures optional listener collaborators.
type Option[E comparable] func(*Listener[E])

// WithLogger wires a logger for lifecycle diagnostics.
func WithLogger[E comparable](l Logger) Option[E] {
	return func(ln *Listener[E]) { ln.logger = l }
}

// New creates an inactive listener for the given source.
func New[E comparable](name string, source Source[E], opts ...Option[E]) *Listener[E] {
	ln := &Listener[E]{
		name:        name,
		source:      source,
		logger:      noopLogger{},
		status:      StatusInactive,
		subscribers: make(map[string]Handler[E]),
	}
	for _, opt := range opts {
		opt(ln)
	}
	return ln
}

// Name returns the listener's identifier.
func (l *Listener[E]) Name() string { return l.name }

// Status returns the current lifecycle state.
func (l *Listener[E]) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// SubscriberCount returns the number of live subscriptions.
func (l *Listener[E]) SubscriberCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subscribers)
}

// Subscribe registers a handler and returns its token. The first
// subscriber starts the source; if activation fails the subscription
// is rolled back and ErrActivation is returned.
func (l *Listener[E]) Subscribe(ctx context.Context, handler Handler[E]) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("listener %s: handler cannot be nil", l.name)
	}

	token := uuid.NewString()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return "", ErrClosed
	}

	l.subscribers[token] = handler

	switch l.status {
	case StatusActive:
		l.mu.Unlock()
		return token, nil

	case StatusActivating:
		// Another goroutine owns the in-flight Start; share its outcome.
		activation := l.activation
		l.mu.Unlock()

		select {
		case <-activation:
		case <-ctx.Done():
			l.removeSubscriber(token)
			return "", fmt.Errorf("listener %s: %w", l.name, ctx.Err())
		}

		l.mu.Lock()
		err := l.activateErr
		l.mu.Unlock()
		if err != nil {
			l.removeSubscriber(token)
			return "", fmt.Errorf("%w: %s: %v", ErrActivation, l.name, err)
		}
		return token, nil

	case StatusDeactivating:
		// A deactivation is draining; wait for it, then activate fresh.
		l.mu.Unlock()
		return token, l.awaitAndActivate(ctx, token)

	default: // StatusInactive
		l.status = StatusActivating
		l.activation = make(chan struct{})
		l.mu.Unlock()
		return token, l.runActivation(ctx, token)
	}
}

// awaitAndActivate parks until the in-flight deactivation settles, then
// drives a fresh activation if this subscriber is still the trigger.
func (l *Listener[E]) awaitAndActivate(ctx context.Context, token string) error {
	for {
		if err := ctx.Err(); err != nil {
			l.removeSubscriber(token)
			return fmt.Errorf("listener %s: %w", l.name, err)
		}

		l.mu.Lock()
		switch l.status {
		case StatusInactive:
			l.status = StatusActivating
			l.activation = make(chan struct{})
			l.mu.Unlock()
			return l.runActivation(ctx, token)
		case StatusActive:
			l.mu.Unlock()
			return nil
		case StatusActivating:
			activation := l.activation
			l.mu.Unlock()
			select {
			case <-activation:
			case <-ctx.Done():
				l.removeSubscriber(token)
				return fmt.Errorf("listener %s: %w", l.name, ctx.Err())
			}
		default: // StatusDeactivating
			deactivation := l.deactivation
			l.mu.Unlock()
			if deactivation == nil {
				continue
			}
			select {
			case <-deactivation:
			case <-ctx.Done():
				l.removeSubscriber(token)
				return fmt.Errorf("listener %s: %w", l.name, ctx.Err())
			}
		}
	}
}

// runActivation performs the single-flight source Start. The caller
// must have transitioned the listener to StatusActivating.
func (l *Listener[E]) runActivation(ctx context.Context, token string) error {
	err := l.source.Start(ctx, l.deliver)

	l.mu.Lock()
	l.activateErr = err
	closedDuring := err == nil && l.closed
	if err != nil || closedDuring {
		l.status = StatusInactive
	} else {
		l.status = StatusActive
	}
	close(l.activation)
	l.mu.Unlock()

	if err != nil {
		l.removeSubscriber(token)
		l.logger.Error("listener activation failed", "listener", l.name, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrActivation, l.name, err)
	}

	// Close won the race: it saw no active source to stop, so the
	// started source is ours to tear down.
	if closedDuring {
		if stopErr := l.source.Stop(ctx); stopErr != nil {
			l.logger.Warn("stopping source on closed listener", "listener", l.name, "error", stopErr)
		}
		return ErrClosed
	}

	l.logger.Debug("listener activated", "listener", l.name)
	return nil
}

// Unsubscribe releases a subscription. When the last subscriber leaves,
// the source is stopped and the de-dup window cleared.
func (l *Listener[E]) Unsubscribe(ctx context.Context, token string) error {
	l.mu.Lock()
	if _, ok := l.subscribers[token]; !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	delete(l.subscribers, token)

	if len(l.subscribers) > 0 || l.status != StatusActive {
		l.mu.Unlock()
		return nil
	}

	l.status = StatusDeactivating
	l.deactivation = make(chan struct{})
	l.mu.Unlock()

	err := l.source.Stop(ctx)

	l.lastMu.Lock()
	var zero E
	l.lastEvent = zero
	l.hasLast = false
	l.lastMu.Unlock()

	l.mu.Lock()
	l.status = StatusInactive
	close(l.deactivation)
	l.deactivation = nil
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("listener deactivation error", "listener", l.name, "error", err)
		return fmt.Errorf("listener %s: stopping source: %w", l.name, err)
	}

	l.logger.Debug("listener deactivated", "listener", l.name)
	return nil
}

// Close shuts the listener down, dropping all subscriptions and
// stopping the source if it is running.
func (l *Listener[E]) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	wasActive := l.status == StatusActive
	l.subscribers = make(map[string]Handler[E])
	l.status = StatusInactive
	l.mu.Unlock()

	if !wasActive {
		return nil
	}
	if err := l.source.Stop(ctx); err != nil {
		return fmt.Errorf("listener %s: stopping source: %w", l.name, err)
	}
	return nil
}

// removeSubscriber drops a token without lifecycle side effects.
func (l *Listener[E]) removeSubscriber(token string) {
	l.mu.Lock()
	delete(l.subscribers, token)
	l.mu.Unlock()
}

// deliver is the emit callback handed to the source. It suppresses
// consecutive duplicate events and fans the rest out to subscribers
// with per-handler panic isolation.
func (l *Listener[E]) deliver(event E) {
	l.lastMu.Lock()
	if l.hasLast && l.lastEvent == event {
		l.lastMu.Unlock()
		return
	}
	l.lastEvent = event
	l.hasLast = true
	l.lastMu.Unlock()

	l.mu.Lock()
	handlers := make([]Handler[E], 0, len(l.subscribers))
	for _, h := range l.subscribers {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()

	for _, handler := range handlers {
		l.invoke(handler, event)
	}
}

// invoke runs one handler with panic recovery.
func (l *Listener[E]) invoke(handler Handler[E], event E) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("listener handler panic recovered",
				"listener", l.name,
				"panic", r,
			)
		}
	}()
	handler(event)
}
