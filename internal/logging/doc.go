// Package logging assembles the slog loggers used by vidpress.
//
// It owns the console and JSON handlers, level parsing and output routing
// (stdout plus an optional log file under the configured log directory), and
// context helpers that tag lines with the run ID, section index, stage, and
// correlation ID carried on the context. A no-op logger is provided for tests
// and for wiring code that must not fail.
package logging
