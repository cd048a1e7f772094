// Package listener provides reference-counted event sources.
//
// A Listener wraps a Source and runs it only while subscribers exist:
// the first Subscribe starts the source, the last Unsubscribe stops it.
// This keeps polling loops and watchers idle when nothing consumes
// them, which matters on battery.
//
// Lifecycle:
//
//	Inactive -> Activating -> Active -> Deactivating -> Inactive
//
// Activation is single-flight. Concurrent first subscribers share one
// Start call and one outcome; a failed Start rolls every waiter back
// and the listener returns to Inactive.
//
// Delivery semantics:
//   - Consecutive identical events are suppressed (transitions only)
//   - The de-dup window resets when the source deactivates
//   - Handler panics are recovered and logged, never propagated
//
// Three sources ship with the package: feature state polling, AC/battery
// power polling, and proc filesystem process transitions.
package listener
