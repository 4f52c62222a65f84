// Package runlog locates and reads the per-run conversion logs written to the
// log directory.
package runlog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"timsconvert/internal/logging"
)

// ErrNoLogs is returned when the log directory holds no run logs.
var ErrNoLogs = errors.New("no run logs found")

const maxLineBytes = 1024 * 1024

// Path returns the log file for runID inside dir.
func Path(dir, runID string) string {
	return filepath.Join(dir, logging.RunLogFileName(runID))
}

// Latest returns the most recently modified run log in dir.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(Path(dir, "*"))
	if err != nil {
		return "", fmt.Errorf("list run logs: %w", err)
	}
	var (
		newest  string
		newestT time.Time
	)
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if newest == "" || info.ModTime().After(newestT) {
			newest, newestT = match, info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%s: %w", dir, ErrNoLogs)
	}
	return newest, nil
}

// Last returns up to limit trailing lines of path and the offset just past
// them. A limit of zero returns every line.
func Last(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open run log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if limit > 0 && len(lines) > limit {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read run log: %w", err)
	}
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, offset, nil
}

// Follow polls path every interval and passes each complete line appended
// after offset to emit. It returns when ctx is done.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []byte
	for {
		next, chunk, err := readFrom(path, offset)
		if err != nil {
			return err
		}
		offset = next
		pending = append(pending, chunk...)
		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			emit(string(pending[:i]))
			pending = pending[i+1:]
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// readFrom returns the bytes after offset. A file that shrank is reread from
// the start.
func readFrom(path string, offset int64) (int64, []byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return offset, nil, fmt.Errorf("open run log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, nil, fmt.Errorf("stat run log: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, nil, fmt.Errorf("seek run log: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return offset, nil, fmt.Errorf("read run log: %w", err)
	}
	return offset + int64(len(data)), data, nil
}
