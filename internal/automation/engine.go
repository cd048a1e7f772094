package automation

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MQTTClient is the interface for publishing execution results to the
// message bus.
type MQTTClient interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// MetricWriter receives execution outcomes for telemetry.
// Satisfied by the influxdb client.
type MetricWriter interface {
	WriteExecutionMetric(automationID string, status string, durationMs float64, stepsCompleted int)
}

// ExecutionTopic builds the MQTT topic for an automation's execution
// results.
type ExecutionTopic func(automationID string) string

// maxExecutionTime is the hard limit for a single automation run.
// Pipelines are short (a few feature writes, delays, one macro); this
// bounds runaway macro replays and stuck firmware writes.
const maxExecutionTime = 5 * time.Minute

// Engine orchestrates automation execution.
//
// It loads automations from the registry, builds runtime steps through
// the factory, executes them strictly in order, and records the result.
// A step failure halts the pipeline; completed steps are not rolled
// back, so the system is left in the partial state the pipeline reached.
//
// Runs of the same automation serialize on a per-automation mutex;
// runs of different automations proceed concurrently.
//
// Thread Safety: Run is safe for concurrent use.
type Engine struct {
	registry *Registry
	factory  *StepFactory
	repo     Repository // For execution logging
	mqtt     MQTTClient
	topic    ExecutionTopic
	hub      WSHub
	metrics  MetricWriter
	logger   Logger

	// runLocks serializes concurrent runs of the same automation.
	runLocks map[string]*sync.Mutex
	locksMu  sync.Mutex
}

// NewEngine creates a new automation engine.
//
// Parameters:
//   - registry: Automation registry for loading definitions
//   - factory: Step factory translating definitions to runtime steps
//   - repo: Repository for persisting execution logs
//   - logger: Logger instance (nil for no logging)
func NewEngine(registry *Registry, factory *StepFactory, repo Repository, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		registry: registry,
		factory:  factory,
		repo:     repo,
		logger:   logger,
		runLocks: make(map[string]*sync.Mutex),
	}
}

// SetMQTT wires a bus client and topic builder for execution results.
func (e *Engine) SetMQTT(client MQTTClient, topic ExecutionTopic) {
	e.mqtt = client
	e.topic = topic
}

// SetHub wires a WebSocket hub for execution broadcasts.
func (e *Engine) SetHub(hub WSHub) {
	e.hub = hub
}

// SetMetrics wires a telemetry writer for execution outcomes.
func (e *Engine) SetMetrics(metrics MetricWriter) {
	e.metrics = metrics
}

// Run executes an automation by ID.
//
// Steps execute sequentially in ascending order. The first failing step
// halts the pipeline: its error is recorded, later steps are counted as
// skipped, and no completed step is undone. Steps with unknown kinds
// are skipped with a warning and do not halt the pipeline.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - automationID: The automation to run
//   - triggerKind: How the run was triggered
//
// Returns:
//   - *Execution: The completed execution record
//   - error: nil when the pipeline ran (inspect Execution.Status), or:
//   - ErrNotFound if the automation doesn't exist
//   - ErrDisabled if the automation is disabled
func (e *Engine) Run(ctx context.Context, automationID string, triggerKind TriggerKind) (*Execution, error) {
	// Apply execution timeout to bound runaway pipelines.
	ctx, cancel := context.WithTimeout(ctx, maxExecutionTime)
	defer cancel()

	// Load automation from registry
	a, err := e.registry.Get(ctx, automationID)
	if err != nil {
		return nil, err
	}

	if !a.Enabled {
		return nil, ErrDisabled
	}

	// Serialize runs of the same automation. Steps mutate shared
	// hardware state; interleaving two pipelines would corrupt both.
	lock := e.runLock(automationID)
	lock.Lock()
	defer lock.Unlock()

	return e.execute(ctx, a, triggerKind)
}

// execute runs the pipeline under the automation's run lock.
func (e *Engine) execute(ctx context.Context, a *Automation, triggerKind TriggerKind) (*Execution, error) {
	started := time.Now().UTC()
	exec := &Execution{
		ID:           GenerateID(),
		AutomationID: a.ID,
		TriggerKind:  triggerKind,
		Status:       StatusPending,
		StepsTotal:   len(a.Steps),
		StartedAt:    started,
	}

	// Persist initial execution record
	if createErr := e.repo.CreateExecution(ctx, exec); createErr != nil {
		e.logger.Error("failed to create execution record", "error", createErr)
		// Continue execution even if logging fails; running the pipeline
		// matters more than the audit trail.
	}

	exec.Status = StatusRunning

	e.logger.Info("automation run started",
		"automation_id", a.ID,
		"automation_name", a.Name,
		"execution_id", exec.ID,
		"trigger", string(triggerKind),
		"steps", len(a.Steps),
	)

	steps := orderedSteps(a.Steps)
	e.runSteps(ctx, exec, steps)

	// Finalize
	finished := time.Now().UTC()
	exec.FinishedAt = &finished
	duration := int(finished.Sub(started).Milliseconds())
	exec.DurationMS = &duration

	if updateErr := e.repo.UpdateExecution(ctx, exec); updateErr != nil {
		e.logger.Error("failed to update execution record", "error", updateErr)
	}

	e.logger.Info("automation run complete",
		"automation_id", a.ID,
		"execution_id", exec.ID,
		"status", string(exec.Status),
		"completed", exec.StepsCompleted,
		"skipped", exec.StepsSkipped,
		"duration_ms", duration,
	)

	e.announce(a, exec)
	return exec, nil
}

// runSteps walks the ordered pipeline, updating the execution record
// in place.
func (e *Engine) runSteps(ctx context.Context, exec *Execution, steps []Step) {
	for i, step := range steps {
		// Check context cancellation between steps
		select {
		case <-ctx.Done():
			exec.Status = StatusCancelled
			exec.StepsSkipped += len(steps) - i
			return
		default:
		}

		runtime, known := e.factory.Build(step)
		if !known {
			e.logger.Warn("skipping step with unknown kind",
				"execution_id", exec.ID,
				"step_index", i,
				"kind", step.Kind,
			)
			exec.StepsSkipped++
			continue
		}

		if err := runtime.Execute(ctx); err != nil {
			if ctx.Err() != nil {
				exec.Status = StatusCancelled
			} else {
				exec.Status = StatusFailed
			}
			exec.Failure = &StepFailure{
				StepIndex: i,
				Kind:      step.Kind,
				ErrorMsg:  err.Error(),
			}
			// Halt: remaining steps are skipped, completed steps stay
			// applied. There is no rollback.
			exec.StepsSkipped += len(steps) - i - 1
			return
		}

		exec.StepsCompleted++
	}

	exec.Status = StatusCompleted
}

// announce publishes the execution result to the bus, the WebSocket
// hub, and telemetry. Failures here are logged, never propagated.
func (e *Engine) announce(a *Automation, exec *Execution) {
	if e.mqtt != nil && e.topic != nil {
		payload, err := json.Marshal(exec)
		if err == nil {
			if pubErr := e.mqtt.Publish(e.topic(a.ID), payload, 1, false); pubErr != nil {
				e.logger.Warn("publishing execution result failed",
					"automation_id", a.ID,
					"error", pubErr,
				)
			}
		}
	}

	if e.hub != nil {
		e.hub.Broadcast("automation.executed", map[string]any{
			"automation_id":   a.ID,
			"automation_name": a.Name,
			"execution_id":    exec.ID,
			"status":          string(exec.Status),
			"steps_completed": exec.StepsCompleted,
		})
	}

	if e.metrics != nil && exec.DurationMS != nil {
		e.metrics.WriteExecutionMetric(a.ID, string(exec.Status), float64(*exec.DurationMS), exec.StepsCompleted)
	}
}

// runLock returns the mutex serializing runs of one automation.
func (e *Engine) runLock(automationID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()

	lock, ok := e.runLocks[automationID]
	if !ok {
		lock = &sync.Mutex{}
		e.runLocks[automationID] = lock
	}
	return lock
}

// orderedSteps returns the steps sorted by ascending Order.
func orderedSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}
