package automation

import (
	"context"
	"fmt"
	"sync"

	"github.com/earnest-s/slate-core/internal/feature"
	"github.com/earnest-s/slate-core/internal/listener"
	"github.com/earnest-s/slate-core/internal/procwatch"
)

// Runner is the interface the binder needs from the engine.
type Runner interface {
	Run(ctx context.Context, automationID string, triggerKind TriggerKind) (*Execution, error)
}

// Listeners bundles the event listeners the binder can subscribe to.
// Feature listeners are keyed by feature ID; a feature_state trigger
// for a feature without a listener fails to bind.
type Listeners struct {
	Process  *listener.Listener[procwatch.Event]
	Power    *listener.Listener[listener.PowerState]
	Features map[string]*listener.Listener[feature.State]
}

// binding tracks one live subscription for later release.
type binding struct {
	unsubscribe func(ctx context.Context) error
}

// Binder subscribes automations to their trigger listeners.
//
// Each enabled automation with a non-manual trigger holds one
// subscription on the listener matching its trigger kind. Because
// listeners are reference-counted, a listener polls only while at least
// one automation needs it: delete the last process-triggered automation
// and the proc scanner goes idle.
//
// Rebind is called after any automation CRUD change; it releases all
// subscriptions and re-subscribes from the current enabled set.
type Binder struct {
	runner    Runner
	listeners Listeners
	logger    Logger

	mu       sync.Mutex
	bindings []binding
}

// NewBinder creates a binder over the given runner and listeners.
func NewBinder(runner Runner, listeners Listeners, logger Logger) *Binder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Binder{
		runner:    runner,
		listeners: listeners,
		logger:    logger,
	}
}

// Bind subscribes every enabled, non-manual automation to its trigger
// listener. Automations whose trigger cannot be bound are logged and
// skipped; one bad definition must not block the rest.
func (b *Binder) Bind(ctx context.Context, automations []Automation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, a := range automations {
		if !a.Enabled || a.Trigger.Kind == TriggerManual {
			continue
		}

		bnd, err := b.subscribe(ctx, a)
		if err != nil {
			b.logger.Error("binding automation trigger failed",
				"automation_id", a.ID,
				"trigger", string(a.Trigger.Kind),
				"error", err,
			)
			continue
		}
		b.bindings = append(b.bindings, bnd)

		b.logger.Debug("automation trigger bound",
			"automation_id", a.ID,
			"trigger", string(a.Trigger.Kind),
		)
	}
}

// Unbind releases every live subscription.
func (b *Binder) Unbind(ctx context.Context) {
	b.mu.Lock()
	bindings := b.bindings
	b.bindings = nil
	b.mu.Unlock()

	for _, bnd := range bindings {
		if err := bnd.unsubscribe(ctx); err != nil {
			b.logger.Warn("releasing trigger subscription failed", "error", err)
		}
	}
}

// Rebind releases all subscriptions and binds the given set. Called
// after automation CRUD changes.
func (b *Binder) Rebind(ctx context.Context, automations []Automation) {
	b.Unbind(ctx)
	b.Bind(ctx, automations)
}

// BindingCount returns the number of live subscriptions.
func (b *Binder) BindingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bindings)
}

// subscribe attaches one automation to the listener its trigger kind
// selects.
func (b *Binder) subscribe(ctx context.Context, a Automation) (binding, error) {
	switch a.Trigger.Kind {
	case TriggerProcessStarted, TriggerProcessStopped:
		return b.subscribeProcess(ctx, a)
	case TriggerPowerSource:
		return b.subscribePower(ctx, a)
	case TriggerFeatureState:
		return b.subscribeFeature(ctx, a)
	default:
		return binding{}, fmt.Errorf("%w: kind %q not bindable", ErrInvalidTrigger, a.Trigger.Kind)
	}
}

func (b *Binder) subscribeProcess(ctx context.Context, a Automation) (binding, error) {
	if b.listeners.Process == nil {
		return binding{}, fmt.Errorf("%w: no process listener available", ErrInvalidTrigger)
	}

	wantKind := procwatch.ProcessStarted
	if a.Trigger.Kind == TriggerProcessStopped {
		wantKind = procwatch.ProcessStopped
	}
	automationID := a.ID
	triggerKind := a.Trigger.Kind
	process := a.Trigger.Process

	token, err := b.listeners.Process.Subscribe(ctx, func(event procwatch.Event) {
		if event.Kind != wantKind || event.Name != process {
			return
		}
		b.fire(automationID, triggerKind)
	})
	if err != nil {
		return binding{}, err
	}

	ln := b.listeners.Process
	return binding{unsubscribe: func(ctx context.Context) error {
		return ln.Unsubscribe(ctx, token)
	}}, nil
}

func (b *Binder) subscribePower(ctx context.Context, a Automation) (binding, error) {
	if b.listeners.Power == nil {
		return binding{}, fmt.Errorf("%w: no power listener available", ErrInvalidTrigger)
	}

	automationID := a.ID
	want := listener.PowerState(a.Trigger.Power)

	token, err := b.listeners.Power.Subscribe(ctx, func(state listener.PowerState) {
		if state != want {
			return
		}
		b.fire(automationID, TriggerPowerSource)
	})
	if err != nil {
		return binding{}, err
	}

	ln := b.listeners.Power
	return binding{unsubscribe: func(ctx context.Context) error {
		return ln.Unsubscribe(ctx, token)
	}}, nil
}

func (b *Binder) subscribeFeature(ctx context.Context, a Automation) (binding, error) {
	ln, ok := b.listeners.Features[a.Trigger.FeatureID]
	if !ok {
		return binding{}, fmt.Errorf("%w: no listener for feature %q", ErrInvalidTrigger, a.Trigger.FeatureID)
	}

	automationID := a.ID
	want := a.Trigger.StateName

	token, err := ln.Subscribe(ctx, func(state feature.State) {
		if state.Name != want {
			return
		}
		b.fire(automationID, TriggerFeatureState)
	})
	if err != nil {
		return binding{}, err
	}

	return binding{unsubscribe: func(ctx context.Context) error {
		return ln.Unsubscribe(ctx, token)
	}}, nil
}

// fire runs the automation on its own goroutine. Listener handlers
// must not block, and a slow pipeline must not stall event delivery.
func (b *Binder) fire(automationID string, triggerKind TriggerKind) {
	go func() {
		if _, err := b.runner.Run(context.Background(), automationID, triggerKind); err != nil {
			b.logger.Error("triggered run failed",
				"automation_id", automationID,
				"trigger", string(triggerKind),
				"error", err,
			)
		}
	}()
}
