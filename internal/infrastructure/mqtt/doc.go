// Package mqtt wraps the Eclipse Paho client with Slate-specific
// connection management, topic builders, and message publishing.
//
// The daemon publishes feature state changes, automation execution
// results, and system events onto the slate/ topic hierarchy, and
// subscribes to slate/feature/+/set and slate/automation/+/run so that
// external tooling can drive the daemon over the bus.
//
// Connection behaviour:
//   - Auto-reconnect with exponential backoff
//   - Subscriptions restored on reconnect
//   - Last Will and Testament on slate/system/status for crash detection
//   - Retained state topics so late subscribers see current values
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return fmt.Errorf("connecting to broker: %w", err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.FeatureState("power_mode")
//	err = client.PublishRetained(topic, payload)
package mqtt
