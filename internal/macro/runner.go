package macro

import (
	"context"
	"fmt"
	"time"
)

// MetricWriter receives replay statistics for telemetry.
// Satisfied by the influxdb client.
type MetricWriter interface {
	WriteMacroMetric(macroID string, eventCount int, durationMs float64)
}

// Runner loads stored sequences and replays them. It is the unit the
// automation engine drives for macro_replay steps.
type Runner struct {
	store   *Store
	player  *Player
	metrics MetricWriter
}

// NewRunner creates a runner over the given store and player. Metrics
// may be nil.
func NewRunner(store *Store, player *Player, metrics MetricWriter) *Runner {
	return &Runner{
		store:   store,
		player:  player,
		metrics: metrics,
	}
}

// Replay loads the sequence by ID and plays it to completion.
func (r *Runner) Replay(ctx context.Context, macroID string) error {
	seq, err := r.store.Get(ctx, macroID)
	if err != nil {
		return fmt.Errorf("loading macro: %w", err)
	}

	started := time.Now()
	if err := r.player.Replay(ctx, seq); err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.WriteMacroMetric(seq.ID, len(seq.Events), float64(time.Since(started).Milliseconds()))
	}
	return nil
}
