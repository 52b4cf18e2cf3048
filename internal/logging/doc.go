// Package logging assembles structured slog loggers for subgen.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline stages tag every
// line with the run identifier and stage name. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
