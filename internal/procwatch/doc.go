// Package procwatch observes the proc filesystem for process start and
// stop transitions.
//
// The watcher polls at a fixed interval, diffs consecutive snapshots,
// and emits name-level events: ProcessStarted when the first instance
// of a named process appears and ProcessStopped when the last instance
// exits. Automation triggers subscribe through the listener layer.
//
// The proc root is configurable so tests run against a fake tree.
package procwatch
