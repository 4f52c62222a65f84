package convert

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"timsconvert/internal/logging"
	"timsconvert/internal/mzml"
	"timsconvert/internal/spectrum"
)

// outputSpec describes one mzML output file.
type outputSpec struct {
	Path     string
	Declared int
	// Title is written as the spectrum title of MALDI spectra.
	Title string
}

// stream is one open mzML output. It writes to the temporary path and only
// reaches the final path through the reconciler.
type stream struct {
	spec    outputSpec
	temp    string
	writer  *mzml.Writer
	lock    *flock.Flock
	counter ScanCounter
	records RecordWriter
	logger  *slog.Logger
}

// lockOutput takes the advisory lock guarding path against a second process.
func lockOutput(path string) (*flock.Flock, error) {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, Wrap(ErrOutput, "output", "lock", path, err)
	}
	if !ok {
		return nil, Wrap(ErrPrecondition, "output", "lock", "another timsconvert process is writing "+path, nil)
	}
	return lock, nil
}

func unlockOutput(lock *flock.Flock, logger *slog.Logger) {
	if lock == nil {
		return
	}
	if err := lock.Unlock(); err != nil {
		logger.Warn("failed to release output lock", logging.String("path", lock.Path()), logging.Error(err))
	}
	if err := os.Remove(lock.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove output lock", logging.String("path", lock.Path()), logging.Error(err))
	}
}

// openStream locks spec.Path and writes everything up to the spectrum list
// header into the temporary file.
func (s *session) openStream(spec outputSpec) (*stream, error) {
	lock, err := lockOutput(spec.Path)
	if err != nil {
		return nil, err
	}
	temp := TempPath(spec.Path)
	writer, err := mzml.Create(temp, mzml.Options{
		Encoding:    s.conv.opts.Assemble.Encoding,
		Compression: s.conv.opts.Compression,
	})
	if err != nil {
		unlockOutput(lock, s.logger)
		return nil, Wrap(ErrOutput, "output", "create", temp, err)
	}
	st := &stream{
		spec:    spec,
		temp:    temp,
		writer:  writer,
		lock:    lock,
		records: s.records,
		logger:  s.logger.With(logging.String(logging.FieldOutput, spec.Path)),
	}

	runID := strings.TrimSuffix(filepath.Base(spec.Path), filepath.Ext(spec.Path))
	if err := writer.WriteMetadata(s.metadata); err != nil {
		st.abort()
		return nil, Wrap(ErrOutput, "output", "write metadata", temp, err)
	}
	if err := writer.BeginRun(runID, s.metadata.SourceFile.ID, s.startTime); err != nil {
		st.abort()
		return nil, Wrap(ErrOutput, "output", "begin run", temp, err)
	}
	if err := writer.BeginSpectrumList(spec.Declared); err != nil {
		st.abort()
		return nil, Wrap(ErrOutput, "output", "begin spectrum list", temp, err)
	}
	return st, nil
}

func (st *stream) write(rec, parent *spectrum.Record) error {
	if err := st.records.Write(st.writer, &st.counter, rec, WriteOptions{Parent: parent, Title: st.spec.Title}); err != nil {
		return Wrap(ErrOutput, "output", "write spectrum", describe(rec), err)
	}
	return nil
}

// abort closes the writer and discards the temporary file.
func (st *stream) abort() {
	_ = st.writer.Close()
	if err := os.Remove(st.temp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(st.logger, "temporary output not removed", "cleanup_failed",
			logging.String("path", st.temp),
			logging.Error(Wrap(ErrCleanup, "output", "abort", "", err)),
		)
	}
	unlockOutput(st.lock, st.logger)
}

// finish closes the writer and hands the temporary file to r.
func (st *stream) finish(r CountReconciler) (Output, error) {
	defer unlockOutput(st.lock, st.logger)
	if err := st.writer.Close(); err != nil {
		_ = os.Remove(st.temp)
		return Output{}, Wrap(ErrOutput, "output", "close", st.temp, err)
	}
	written := st.counter.Count()
	patched, err := r.Reconcile(st.temp, st.spec.Path, st.spec.Declared, written)
	if err != nil {
		return Output{}, err
	}
	if patched {
		st.logger.Info("spectrum count reconciled",
			logging.Int("declared", st.spec.Declared),
			logging.Int("written", written),
		)
	}
	return Output{Path: st.spec.Path, Declared: st.spec.Declared, Written: written, Patched: patched}, nil
}

// withStream runs fn against a fresh output and guarantees the writer is
// closed on every path. On failure the temporary file is removed and nothing
// reaches spec.Path.
func (s *session) withStream(spec outputSpec, fn func(*stream) error) (Output, error) {
	st, err := s.openStream(spec)
	if err != nil {
		return Output{}, err
	}
	if err := fn(st); err != nil {
		st.abort()
		return Output{}, err
	}
	return st.finish(s.conv.reconciler)
}
