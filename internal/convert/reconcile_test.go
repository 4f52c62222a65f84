package convert_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"timsconvert/internal/convert"
	"timsconvert/internal/mzml"
	"timsconvert/internal/testsupport"
)

func sampleDocument(count int) string {
	return strings.Join([]string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<mzML>`,
		`   <run id="run">`,
		mzml.SpectrumListLine(count),
		`         <spectrum index="0" id="scan=1" defaultArrayLength="0"></spectrum>`,
		`         <spectrum index="1" id="scan=2" defaultArrayLength="0"></spectrum>`,
		`      </spectrumList>`,
		`   </run>`,
		`</mzML>`,
		``,
	}, "\n")
}

func writeTemp(t *testing.T, content string) (string, string) {
	t.Helper()
	final := filepath.Join(t.TempDir(), "run.mzML")
	temp := convert.TempPath(final)
	testsupport.WriteFile(t, temp, content)
	return temp, final
}

func assertGone(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, stat err = %v", path, err)
	}
}

func TestTempPath(t *testing.T) {
	t.Parallel()
	if got := convert.TempPath("/out/run.mzML"); got != "/out/run_tmp.mzML" {
		t.Fatalf("TempPath = %q", got)
	}
}

func TestReconcileEqualCountsRenames(t *testing.T) {
	t.Parallel()
	content := sampleDocument(2)
	temp, final := writeTemp(t, content)
	testsupport.WriteFile(t, final, "stale")

	patched, err := convert.TextPatchReconciler{}.Reconcile(temp, final, 2, 2)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if patched {
		t.Fatal("equal counts must not patch")
	}
	if got := testsupport.ReadFile(t, final); got != content {
		t.Fatalf("final differs from temp:\n%s", got)
	}
	assertGone(t, temp)
}

func TestReconcilePatchesOnlyTheCountToken(t *testing.T) {
	t.Parallel()
	temp, final := writeTemp(t, sampleDocument(5))

	patched, err := convert.TextPatchReconciler{}.Reconcile(temp, final, 5, 2)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !patched {
		t.Fatal("expected patch")
	}
	if got, want := testsupport.ReadFile(t, final), sampleDocument(2); got != want {
		t.Fatalf("patched document:\n%s\nwant:\n%s", got, want)
	}
	assertGone(t, temp)
	assertGone(t, final+".partial")
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()
	temp, final := writeTemp(t, sampleDocument(7))
	reconciler := convert.TextPatchReconciler{}
	if _, err := reconciler.Reconcile(temp, final, 7, 2); err != nil {
		t.Fatal(err)
	}
	first := testsupport.ReadFile(t, final)

	// Reconciling the corrected file again is a byte-identical rename.
	testsupport.WriteFile(t, temp, first)
	patched, err := reconciler.Reconcile(temp, final, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if patched || testsupport.ReadFile(t, final) != first {
		t.Fatal("second reconciliation changed the output")
	}
}

func TestReconcilePatchesFirstMatchOnly(t *testing.T) {
	t.Parallel()
	doc := sampleDocument(3) + mzml.SpectrumListLine(3) + "\n"
	temp, final := writeTemp(t, doc)
	if _, err := (convert.TextPatchReconciler{}).Reconcile(temp, final, 3, 2); err != nil {
		t.Fatal(err)
	}
	got := testsupport.ReadFile(t, final)
	if strings.Count(got, mzml.SpectrumListLine(2)) != 1 || strings.Count(got, mzml.SpectrumListLine(3)) != 1 {
		t.Fatalf("expected exactly the first header patched:\n%s", got)
	}
}

func TestReconcileMissingHeaderIsDefect(t *testing.T) {
	t.Parallel()
	temp, final := writeTemp(t, sampleDocument(4))

	_, err := convert.TextPatchReconciler{}.Reconcile(temp, final, 9, 2)
	if !errors.Is(err, convert.ErrDefect) {
		t.Fatalf("expected ErrDefect, got %v", err)
	}
	assertGone(t, final)
	assertGone(t, final+".partial")
}
