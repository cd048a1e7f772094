package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteFeatureState writes a hardware feature state change to InfluxDB.
//
// This is the primary method for recording feature telemetry. The write
// is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - featureID: Feature identifier (e.g., "power_mode", "keyboard_backlight")
//   - stateName: The state the feature transitioned to (e.g., "performance")
//   - value: The numeric register value backing the state
//
// Example:
//
//	client.WriteFeatureState("power_mode", "quiet", 1)
//	client.WriteFeatureState("keyboard_backlight", "high", 2)
func (c *Client) WriteFeatureState(featureID string, stateName string, value int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"feature_state",
		map[string]string{
			"feature_id": featureID,
			"state":      stateName,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteExecutionMetric writes an automation execution outcome.
//
// Used for tracking automation reliability and step throughput.
//
// Parameters:
//   - automationID: Automation identifier
//   - status: Final execution status (completed, partial, failed)
//   - durationMs: Wall-clock execution duration in milliseconds
//   - stepsCompleted: Number of steps that completed successfully
func (c *Client) WriteExecutionMetric(automationID string, status string, durationMs float64, stepsCompleted int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"automation_execution",
		map[string]string{
			"automation_id": automationID,
			"status":        status,
		},
		map[string]interface{}{
			"duration_ms":     durationMs,
			"steps_completed": stepsCompleted,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteMacroMetric writes a macro replay measurement.
//
// Parameters:
//   - macroID: Macro sequence identifier
//   - eventCount: Number of input events replayed
//   - durationMs: Total replay duration in milliseconds
func (c *Client) WriteMacroMetric(macroID string, eventCount int, durationMs float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"macro_replay",
		map[string]string{
			"macro_id": macroID,
		},
		map[string]interface{}{
			"event_count": eventCount,
			"duration_ms": durationMs,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "legion-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
