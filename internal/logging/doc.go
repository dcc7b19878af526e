// Package logging assembles structured slog loggers and formatting helpers used
// across loopctl.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so transport and dispatcher code
// can tag log lines with command verbs, state slices, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Log lines are diagnostics for the operator's terminal or log file. The
// user-facing activity trail lives in package activity.
package logging
