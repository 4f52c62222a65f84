package convert

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPrecondition marks inputs or options rejected before any output is written.
	ErrPrecondition = errors.New("precondition failed")
	// ErrDefect marks internal inconsistencies such as a missing spectrum list header.
	ErrDefect = errors.New("conversion defect")
	// ErrCleanup marks failures removing temporary files. They are logged, not returned.
	ErrCleanup = errors.New("cleanup failure")
	// ErrInput marks acquisitions that cannot be read.
	ErrInput = errors.New("input failure")
	// ErrOutput marks read or write failures while streaming an output.
	ErrOutput = errors.New("output failure")
)

// Wrap builds an error carrying the stage and operation that failed, tagged
// with marker for classification. A nil marker means ErrOutput.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrOutput
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Status labels a conversion result for the summary table.
type Status string

const (
	StatusDone     Status = "done"
	StatusRejected Status = "rejected"
	StatusDefect   Status = "defect"
	StatusFailed   Status = "failed"
)

// StatusFor maps a conversion error to the status reported for its input.
func StatusFor(err error) Status {
	switch {
	case err == nil:
		return StatusDone
	case errors.Is(err, ErrPrecondition):
		return StatusRejected
	case errors.Is(err, ErrDefect):
		return StatusDefect
	default:
		return StatusFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "conversion failure"
	}
	return strings.Join(parts, ": ")
}
