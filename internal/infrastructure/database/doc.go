// Package database provides the SQLite persistence layer for Slate Core.
//
// It wraps database/sql with WAL-mode configuration, embedded schema
// migrations, and health checks. Automations, macro sequences, and
// execution history are stored here; repositories in the domain packages
// own their table access.
package database
