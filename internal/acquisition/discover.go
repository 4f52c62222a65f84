package acquisition

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover returns the .d directories to convert. A path ending in .d is
// returned as is; any other directory is searched recursively.
func Discover(input string) ([]string, error) {
	input = filepath.Clean(strings.TrimSpace(input))
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", input, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input %s: not a directory", input)
	}
	if isDotD(input) {
		return []string{input}, nil
	}

	var found []string
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() && path != input && isDotD(path) {
			found = append(found, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", input, err)
	}
	if len(found) == 0 {
		return nil, errors.New("no .d directories found under " + input)
	}
	sort.Strings(found)
	return found, nil
}

func isDotD(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".d")
}

// BaseName returns the acquisition name without the .d suffix.
func BaseName(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
