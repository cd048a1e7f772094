// Package macro records and replays timed input event sequences.
//
// The Recorder timestamps each captured event and stores the gap to the
// previous event as the event's delay. The Player walks a sequence and
// sleeps each delay before injecting, reproducing the original rhythm.
// Delays ride on monotonic time, so wall-clock changes during a
// recording do not corrupt timing.
//
// Cancellation is event-granular: a cancelled replay interrupts the
// delay it is waiting out, but never a half-delivered event.
//
// Sequences persist in SQLite through the Store, with events serialized
// as a JSON column.
package macro
