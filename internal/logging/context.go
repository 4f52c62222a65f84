package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one CLI invocation.
	FieldRunID = "run_id"
	// FieldInput is the .d directory being converted.
	FieldInput = "input"
	// FieldOutput is the output file being written.
	FieldOutput = "output"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey string

const (
	inputKey  contextKey = "input"
	outputKey contextKey = "output"
)

// WithInput annotates ctx with the input being converted.
func WithInput(ctx context.Context, input string) context.Context {
	if input == "" {
		return ctx
	}
	return context.WithValue(ctx, inputKey, input)
}

// WithOutput annotates ctx with the output file being written.
func WithOutput(ctx context.Context, output string) context.Context {
	if output == "" {
		return ctx
	}
	return context.WithValue(ctx, outputKey, output)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if v, ok := ctx.Value(inputKey).(string); ok && v != "" {
		fields = append(fields, slog.String(FieldInput, v))
	}
	if v, ok := ctx.Value(outputKey).(string); ok && v != "" {
		fields = append(fields, slog.String(FieldOutput, v))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(toArgs(fields)...)
}
