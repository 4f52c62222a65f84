package convert_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"timsconvert/internal/convert"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("disk full")
	err := convert.Wrap(convert.ErrOutput, "lcms", "write spectrum", "scan=4", base)
	if !errors.Is(err, convert.ErrOutput) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"lcms", "write spectrum", "scan=4", "disk full"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := convert.Wrap(nil, " ", "", "", nil)
	if !errors.Is(err, convert.ErrOutput) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "conversion failure") {
		t.Fatalf("expected fallback detail, got %q", err)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want convert.Status
	}{
		{"nil", nil, convert.StatusDone},
		{"precondition", convert.Wrap(convert.ErrPrecondition, "maldi", "plate map", "missing", nil), convert.StatusRejected},
		{"defect", convert.Wrap(convert.ErrDefect, "reconcile", "", "", nil), convert.StatusDefect},
		{"other", context.Canceled, convert.StatusFailed},
	}
	for _, tt := range tests {
		if got := convert.StatusFor(tt.err); got != tt.want {
			t.Fatalf("%s: StatusFor = %s, want %s", tt.name, got, tt.want)
		}
	}
}
