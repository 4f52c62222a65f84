package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"timsconvert/internal/acquisition"
	"timsconvert/internal/platemap"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckInput verifies that a .d directory holds a readable acquisition database.
func CheckInput(path string) Result {
	name := "Input " + acquisition.BaseName(path)
	kind, dbPath, err := acquisition.DetectKind(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if err := unix.Access(dbPath, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", dbPath, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, kind)}
}

// CheckPlateMap verifies that the plate map parses and maps at least one label.
func CheckPlateMap(path string) Result {
	const name = "Plate map"

	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	m, err := platemap.Load(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	labels := m.Labels()
	if len(labels) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no labelled positions)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d labels, %d positions)", path, len(labels), len(m.Positions()))}
}
