// Package logging provides structured logging for Slate Core.
//
// It wraps log/slog with level parsing, JSON/text output selection, and
// default service attributes. Domain packages declare their own minimal
// Logger interfaces; *logging.Logger satisfies all of them.
package logging
