package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, RunLogFileName("old"))
	current := filepath.Join(dir, RunLogFileName("current"))
	recent := filepath.Join(dir, RunLogFileName("recent"))
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, recent, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	stale := time.Now().AddDate(0, 0, -40)
	for _, path := range []string{old, current, other} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatal(err)
		}
	}

	CleanupOldLogs(NewNop(), 30, RetentionTarget{Dir: dir, Pattern: "timsconvert-*.log", Exclude: []string{current}})

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected stale run log removed, stat err=%v", err)
	}
	for _, path := range []string{current, recent, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to survive: %v", filepath.Base(path), err)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, RunLogFileName("old"))
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().AddDate(-1, 0, 0)
	if err := os.Chtimes(path, stale, stale); err != nil {
		t.Fatal(err)
	}
	CleanupOldLogs(nil, 0, RetentionTarget{Dir: dir, Pattern: "timsconvert-*.log"})
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("retention 0 must keep logs: %v", err)
	}
}
