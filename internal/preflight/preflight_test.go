package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"timsconvert/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckInput(t *testing.T) {
	dir := t.TempDir()
	dotD := testsupport.WriteTSF(t, dir, "run", testsupport.TimsAcquisition{Frames: testsupport.FrameRows(1)})
	if result := CheckInput(dotD); !result.Passed || !strings.Contains(result.Detail, "TSF") {
		t.Fatalf("expected pass naming the schema, got %+v", result)
	}

	empty := filepath.Join(dir, "empty.d")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	if result := CheckInput(empty); result.Passed {
		t.Fatal("expected failure for a .d without a database")
	}
}

func TestCheckPlateMap(t *testing.T) {
	dir := t.TempDir()
	good := testsupport.WritePlateMap(t, dir, [][2]string{{"A1", "ctrl"}, {"A2", "ctrl"}, {"B1", "nan"}})
	result := CheckPlateMap(good)
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "1 labels, 3 positions") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}

	unlabelled := filepath.Join(dir, "blank.csv")
	testsupport.WriteFile(t, unlabelled, "position,label\nA1,\nA2,NaN\n")
	if result := CheckPlateMap(unlabelled); result.Passed {
		t.Fatal("expected failure for a map without labels")
	}
	if result := CheckPlateMap(""); result.Passed {
		t.Fatal("expected failure when unset")
	}
}

func TestRunAllSkipsPlateMapForCombined(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(cfg, nil)
	for _, r := range results {
		if r.Name == "Plate map" {
			t.Fatalf("plate map checked for combined output: %+v", r)
		}
	}
	if err := Failed(results); err != nil {
		t.Fatalf("expected all checks to pass, got %v", err)
	}
}

func TestRunAllReportsMissingPlateMap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	cfg.Maldi.OutputFile = "sample"
	cfg.Maldi.PlateMap = filepath.Join(t.TempDir(), "missing.csv")
	err := Failed(RunAll(cfg, nil))
	if err == nil || !strings.Contains(err.Error(), "Plate map") {
		t.Fatalf("expected plate map failure, got %v", err)
	}
}
