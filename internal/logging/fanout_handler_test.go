package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestCombineHandlersCollapses(t *testing.T) {
	if _, ok := combineHandlers(nil, nil).(discardHandler); !ok {
		t.Fatal("expected discard handler when every handler is nil")
	}
	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if h := combineHandlers(nil, inner); h != inner {
		t.Fatalf("expected the single live handler unwrapped, got %T", h)
	}
}

func TestMultiHandlerRespectsEachLevel(t *testing.T) {
	var file, console bytes.Buffer
	h := combineHandlers(
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).With(slog.String(FieldInput, "run.d"))

	logger.Debug("chunk assembled", slog.Int("spectra", 4))
	logger.Warn("count mismatch", slog.Int("declared", 4))

	if got := strings.Count(file.String(), "\n"); got != 2 {
		t.Fatalf("file handler: expected 2 records, got %d: %s", got, file.String())
	}
	if strings.Contains(console.String(), "chunk assembled") {
		t.Fatalf("console handler logged below its level: %s", console.String())
	}
	if !strings.Contains(console.String(), "count mismatch") || !strings.Contains(console.String(), "input=run.d") {
		t.Fatalf("console handler missing warning or attrs: %s", console.String())
	}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled when any destination accepts it")
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestMultiHandlerJoinsErrorsAndKeepsWriting(t *testing.T) {
	var console bytes.Buffer
	h := combineHandlers(
		failingHandler{slog.NewJSONHandler(&bytes.Buffer{}, nil)},
		slog.NewTextHandler(&console, nil),
	)

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "converted", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined handler error, got %v", err)
	}
	if !strings.Contains(console.String(), "converted") {
		t.Fatalf("expected the healthy destination to receive the record: %q", console.String())
	}
}

func TestMultiHandlerWithGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := combineHandlers(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	slog.New(h).WithGroup("chunk").Info("planned", slog.Int("frames", 3))

	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"chunk":{"frames":3}`) {
			t.Fatalf("expected grouped attrs, got %s", out)
		}
	}
}
