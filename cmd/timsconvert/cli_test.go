package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"timsconvert/internal/config"
	"timsconvert/internal/convert"
	"timsconvert/internal/testsupport"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}

// writeConfig isolates HOME and persists cfg as TOML, returning its path.
func writeConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	testsupport.WriteFile(t, path, string(data))
	return path
}

func TestConfigInitValidateShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init without --overwrite to refuse an existing file")
	}
	if _, _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, "config", "validate", "-c", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+target)
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, "config", "show", "-c", target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "chunk_size = 10")
	requireContains(t, out, "[conversion]")
	requireContains(t, out, "zlib")
}

func TestConfigValidateRejectsBadLogLevel(t *testing.T) {
	cfgPath := writeConfig(t, testsupport.NewConfig(t))

	_, _, err := runCLI(t, "config", "validate", "-c", cfgPath, "--log-level", "loud")
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected logging.level error, got %v", err)
	}
}

func TestConvertCommandWritesMzML(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithChunkSize(2))
	cfgPath := writeConfig(t, cfg)
	base := t.TempDir()
	dotD := testsupport.WriteTSF(t, base, "run", testsupport.TimsAcquisition{Frames: testsupport.FrameRows(5)})
	outDir := filepath.Join(base, "converted")

	out, _, err := runCLI(t, "-c", cfgPath, "convert", dotD, "--outdir", outDir, "--compression", "none")
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	requireContains(t, out, "run.d")
	requireContains(t, out, "run.mzML")
	requireContains(t, out, string(convert.StatusDone))

	doc := testsupport.ReadFile(t, filepath.Join(outDir, "run.mzML"))
	requireContains(t, doc, `<spectrumList count="5"`)
	requireContains(t, doc, "no compression")

	logs, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "timsconvert-*.log"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one run log, got %v (%v)", logs, err)
	}
	requireContains(t, testsupport.ReadFile(t, logs[0]), "conversion run started")
}

func TestConvertCommandDiscoversNestedInputs(t *testing.T) {
	cfgPath := writeConfig(t, testsupport.NewConfig(t))
	base := t.TempDir()
	testsupport.WriteTSF(t, filepath.Join(base, "batch"), "a", testsupport.TimsAcquisition{Frames: testsupport.FrameRows(2)})
	testsupport.WriteTSF(t, filepath.Join(base, "batch"), "b", testsupport.TimsAcquisition{Frames: testsupport.FrameRows(3)})
	outDir := filepath.Join(base, "out")

	out, _, err := runCLI(t, "-c", cfgPath, "convert", filepath.Join(base, "batch"), "-o", outDir)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	for _, name := range []string{"a.mzML", "b.mzML"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	requireContains(t, out, "2 inputs")
}

func TestConvertCommandRejectsOutfileForManyInputs(t *testing.T) {
	cfgPath := writeConfig(t, testsupport.NewConfig(t))
	base := t.TempDir()
	first := testsupport.WriteTSF(t, base, "a", testsupport.TimsAcquisition{Frames: testsupport.FrameRows(1)})
	second := testsupport.WriteTSF(t, base, "b", testsupport.TimsAcquisition{Frames: testsupport.FrameRows(1)})

	_, _, err := runCLI(t, "-c", cfgPath, "convert", first, second, "--outfile", "merged.mzML")
	if err == nil || !strings.Contains(err.Error(), "--outfile") {
		t.Fatalf("expected --outfile error, got %v", err)
	}
}

func TestConvertCommandRequiresPlateMapForSampleOutput(t *testing.T) {
	cfgPath := writeConfig(t, testsupport.NewConfig(t))
	dotD := testsupport.WriteTSF(t, t.TempDir(), "plate", testsupport.TimsAcquisition{Frames: testsupport.FrameRows(1)})

	_, _, err := runCLI(t, "-c", cfgPath, "convert", dotD, "--maldi-output-file", "sample")
	if err == nil || !strings.Contains(err.Error(), "plate_map") {
		t.Fatalf("expected plate_map error, got %v", err)
	}
}

func TestConvertCommandReportsFailedInputs(t *testing.T) {
	cfgPath := writeConfig(t, testsupport.NewConfig(t))
	base := t.TempDir()
	empty := testsupport.WriteTSF(t, base, "empty", testsupport.TimsAcquisition{})

	out, _, err := runCLI(t, "-c", cfgPath, "convert", empty, "-o", filepath.Join(base, "out"))
	if err == nil || !strings.Contains(err.Error(), "1 of 1 inputs failed") {
		t.Fatalf("expected failure summary, got %v", err)
	}
	requireContains(t, out, string(convert.StatusRejected))
}

func TestInspectCommandSummarizesAcquisition(t *testing.T) {
	cfgPath := writeConfig(t, testsupport.NewConfig(t))
	dotD := testsupport.WriteTSF(t, t.TempDir(), "run", testsupport.TimsAcquisition{
		Metadata: map[string]string{"AcquisitionSoftware": "timsTOF", "AcquisitionSoftwareVersion": "4.1"},
		Frames:   testsupport.FrameRows(3),
	})

	out, _, err := runCLI(t, "-c", cfgPath, "inspect", dotD)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"run.d", "TSF", "lc-ms", "MS1", "timsTOF 4.1"} {
		requireContains(t, out, want)
	}
}

func TestRenderResultsListsEveryOutput(t *testing.T) {
	t.Parallel()
	results := []convert.Result{
		{
			Input: "/data/plate.d",
			Outputs: []convert.Output{
				{Path: "/out/A.mzML", Declared: 2, Written: 2},
				{Path: "/out/B.mzML", Declared: 1, Written: 3, Patched: true},
			},
		},
		{Input: "/data/broken.d", Err: convert.Wrap(convert.ErrDefect, "reconcile", "patch", "header missing", nil)},
	}

	out := renderResults(results)
	for _, want := range []string{"plate.d", "A.mzML", "B.mzML", "yes", "broken.d", "defect", "header missing", "2 inputs"} {
		requireContains(t, out, want)
	}
	if strings.Count(out, "plate.d") != 1 {
		t.Fatalf("expected input name once, got:\n%s", out)
	}
}

func TestSummarizeResultsCountsFailures(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	ok := convert.Result{Input: "a.d"}
	bad := convert.Result{Input: "b.d", Err: errors.New("boom")}

	if err := summarizeResults(ctx, []convert.Result{ok, ok}, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := summarizeResults(ctx, []convert.Result{ok, bad}, 2); err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("expected failure count, got %v", err)
	}
	if err := summarizeResults(ctx, []convert.Result{ok}, 2); err == nil {
		t.Fatal("expected error when inputs were skipped")
	}
}

func TestLogCommandPrintsLatestRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfgPath := writeConfig(t, cfg)
	base := t.TempDir()
	dotD := testsupport.WriteTSF(t, base, "run", testsupport.TimsAcquisition{Frames: testsupport.FrameRows(1)})

	if out, _, err := runCLI(t, "-c", cfgPath, "convert", dotD, "-o", filepath.Join(base, "out")); err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}

	out, _, err := runCLI(t, "-c", cfgPath, "log", "-n", "0")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	requireContains(t, out, "conversion run started")
}

func TestLogCommandWithoutRuns(t *testing.T) {
	cfgPath := writeConfig(t, testsupport.NewConfig(t))

	_, _, err := runCLI(t, "-c", cfgPath, "log")
	if err == nil || !strings.Contains(err.Error(), "no run logs") {
		t.Fatalf("expected no run logs error, got %v", err)
	}
}
