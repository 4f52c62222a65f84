// Package logging assembles structured slog loggers and formatting helpers used
// across timsconvert.
//
// It owns the console and JSON handlers, the per-run log file, and the run id
// tagging that ties every line of one conversion run together. Context helpers
// attach the input and output currently being processed so conversion code can
// log without threading those fields by hand. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
