// Package logging assembles structured slog loggers and formatting helpers used
// across revoice.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline stages automatically tag log
// lines with task IDs, stage names, and correlation IDs. A no-op logger is
// available for tests and wiring code that cannot fail.
package logging
