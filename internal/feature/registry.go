package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher is the subset of the MQTT client the registry needs to
// announce state changes. Declared here so tests can substitute fakes.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
}

// MetricWriter receives feature state transitions for telemetry.
// Satisfied by the influxdb client.
type MetricWriter interface {
	WriteFeatureState(featureID string, stateName string, value int)
}

// TopicBuilder builds the MQTT topic for a feature's state messages.
type TopicBuilder func(featureID string) string

// StateChange describes one observed feature transition. Delivered to
// subscribers registered with OnChange and serialized onto the bus.
type StateChange struct {
	FeatureID string    `json:"feature_id"`
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// Registry holds every feature the daemon exposes and fans out state
// changes to the bus, telemetry, and in-process subscribers.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	features map[string]Feature

	publisher Publisher
	topics    TopicBuilder
	metrics   MetricWriter
	logger    Logger

	changeMu sync.RWMutex
	onChange []func(StateChange)
}

// RegistryOption configures optional registry collaborators.
type RegistryOption func(*Registry)

// WithPublisher wires an MQTT publisher for retained state topics.
func WithPublisher(p Publisher, topics TopicBuilder) RegistryOption {
	return func(r *Registry) {
		r.publisher = p
		r.topics = topics
	}
}

// WithMetrics wires a telemetry writer for state transitions.
func WithMetrics(m MetricWriter) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithLogger wires a logger for registry diagnostics.
func WithLogger(l Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty feature registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		features: make(map[string]Feature),
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a feature to the registry. Unsupported features are
// registered too; callers filter on IsSupported when listing.
// Registering a duplicate ID replaces the previous entry.
func (r *Registry) Register(f Feature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.features[f.ID()] = f
}

// Get returns the feature with the given ID.
func (r *Registry) Get(id string) (Feature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.features[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	return f, nil
}

// List returns all registered features sorted by ID.
func (r *Registry) List() []Feature {
	r.mu.RLock()
	defer r.mu.RUnlock()

	features := make([]Feature, 0, len(r.features))
	for _, f := range r.features {
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool {
		return features[i].ID() < features[j].ID()
	})
	return features
}

// ListSupported returns the features the current hardware exposes,
// sorted by ID.
func (r *Registry) ListSupported(ctx context.Context) []Feature {
	var supported []Feature
	for _, f := range r.List() {
		if f.IsSupported(ctx) {
			supported = append(supported, f)
		}
	}
	return supported
}

// OnChange registers a callback invoked after every successful state
// change. Callbacks run synchronously on the caller's goroutine and
// must not block.
func (r *Registry) OnChange(fn func(StateChange)) {
	r.changeMu.Lock()
	defer r.changeMu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// SetState resolves the named state on the identified feature and
// applies it, then announces the change.
//
// Returns ErrNotRegistered for unknown features and ErrUnknownState for
// state names outside the feature's state set.
func (r *Registry) SetState(ctx context.Context, featureID, stateName string) (State, error) {
	f, err := r.Get(featureID)
	if err != nil {
		return State{}, err
	}

	state, err := resolveState(f, stateName)
	if err != nil {
		return State{}, err
	}

	if err := f.SetState(ctx, state); err != nil {
		return State{}, err
	}

	r.announce(StateChange{
		FeatureID: featureID,
		State:     state,
		Timestamp: time.Now().UTC(),
	})

	return state, nil
}

// announce fans a state change out to the bus, telemetry, and
// subscribers. Publish failures are logged, never propagated; the
// hardware write already succeeded.
func (r *Registry) announce(change StateChange) {
	r.logger.Info("feature state changed",
		"feature_id", change.FeatureID,
		"state", change.State.Name,
		"value", change.State.Value,
	)

	if r.publisher != nil && r.topics != nil {
		payload, err := json.Marshal(change)
		if err == nil {
			if err := r.publisher.PublishRetained(r.topics(change.FeatureID), payload); err != nil {
				r.logger.Warn("publishing feature state failed",
					"feature_id", change.FeatureID,
					"error", err,
				)
			}
		}
	}

	if r.metrics != nil {
		r.metrics.WriteFeatureState(change.FeatureID, change.State.Name, change.State.Value)
	}

	r.changeMu.RLock()
	subscribers := make([]func(StateChange), len(r.onChange))
	copy(subscribers, r.onChange)
	r.changeMu.RUnlock()

	for _, fn := range subscribers {
		fn(change)
	}
}

// resolveState finds the state with the given name in the feature's
// state set.
func resolveState(f Feature, stateName string) (State, error) {
	for _, s := range f.AllStates() {
		if s.Name == stateName {
			return s, nil
		}
	}
	return State{}, fmt.Errorf("%w: %s has no state named %q", ErrUnknownState, f.ID(), stateName)
}
