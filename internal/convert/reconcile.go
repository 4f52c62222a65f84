package convert

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"timsconvert/internal/logging"
	"timsconvert/internal/mzml"
)

// CountReconciler moves a closed temporary output to its final path, fixing
// the declared spectrum count when it differs from the written count.
type CountReconciler interface {
	Reconcile(tempPath, finalPath string, declared, written int) (patched bool, err error)
}

// TempPath returns the temporary path an output is streamed to.
func TempPath(finalPath string) string {
	ext := filepath.Ext(finalPath)
	return strings.TrimSuffix(finalPath, ext) + "_tmp" + ext
}

// TextPatchReconciler rewrites the spectrumList header line in a copy of the
// temporary file. Every other byte is copied unchanged.
type TextPatchReconciler struct {
	Logger *slog.Logger
}

// Reconcile renames tempPath to finalPath when the counts agree and patches
// the count line otherwise. The temporary file is removed in both cases; a
// failure to remove it is logged and ignored.
func (r TextPatchReconciler) Reconcile(tempPath, finalPath string, declared, written int) (bool, error) {
	if err := os.Remove(finalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, Wrap(ErrOutput, "reconcile", "remove stale output", finalPath, err)
	}
	if declared == written {
		if err := os.Rename(tempPath, finalPath); err != nil {
			return false, Wrap(ErrOutput, "reconcile", "rename", finalPath, err)
		}
		return false, nil
	}

	partial := finalPath + ".partial"
	if err := patchCount(tempPath, partial, declared, written); err != nil {
		_ = os.Remove(partial)
		r.removeTemp(tempPath)
		return false, err
	}
	if err := os.Rename(partial, finalPath); err != nil {
		_ = os.Remove(partial)
		return false, Wrap(ErrOutput, "reconcile", "rename", finalPath, err)
	}
	r.removeTemp(tempPath)
	return true, nil
}

func (r TextPatchReconciler) removeTemp(path string) {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	logging.WarnWithContext(r.Logger, "temporary output not removed", "cleanup_failed",
		logging.String("path", path),
		logging.Error(Wrap(ErrCleanup, "reconcile", "remove temp", "", err)),
		logging.String(logging.FieldImpact, "a stale _tmp file remains next to the output"),
		logging.String(logging.FieldErrorHint, "delete the file manually"),
	)
}

// patchCount copies src to dst line by line, replacing the first spectrumList
// header that declares declared with one declaring written.
func patchCount(src, dst string, declared, written int) error {
	in, err := os.Open(src)
	if err != nil {
		return Wrap(ErrOutput, "reconcile", "open temp", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return Wrap(ErrOutput, "reconcile", "create", dst, err)
	}

	want := mzml.SpectrumListLine(declared)
	replacement := mzml.SpectrumListLine(written)
	reader := bufio.NewReader(in)
	writer := bufio.NewWriter(out)
	found := false
	for {
		line, readErr := reader.ReadString('\n')
		if !found {
			body := strings.TrimRight(line, "\r\n")
			if body == want {
				line = replacement + line[len(body):]
				found = true
			}
		}
		if _, err := writer.WriteString(line); err != nil {
			_ = out.Close()
			return Wrap(ErrOutput, "reconcile", "write", dst, err)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			_ = out.Close()
			return Wrap(ErrOutput, "reconcile", "read", src, readErr)
		}
	}
	flushErr := writer.Flush()
	closeErr := out.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		return Wrap(ErrOutput, "reconcile", "close", dst, err)
	}
	if !found {
		return Wrap(ErrDefect, "reconcile", "patch count",
			fmt.Sprintf("no spectrumList header declaring %d in %s", declared, src), nil)
	}
	return nil
}
