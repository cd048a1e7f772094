// Package influxdb provides time-series telemetry storage for Slate Core.
//
// Feature state transitions, automation execution outcomes, and macro
// replay statistics are written as measurement points. Writes are
// non-blocking and batched; failures surface through an async error
// callback rather than the write path.
//
// The integration is optional. When disabled in configuration, Connect
// returns ErrDisabled and callers run without telemetry.
package influxdb
