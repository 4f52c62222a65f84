// Package platemap reads MALDI target plate maps that assign a sample label to
// each spot position.
package platemap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"timsconvert/internal/textutil"
)

// ErrInvalid marks plate maps that cannot be used for routing.
var ErrInvalid = errors.New("invalid plate map")

var positionPattern = regexp.MustCompile(`^([A-Za-z]+)0*([0-9]+)$`)

var headerNames = []string{"position", "spot", "coord", "coordinate", "well"}

// Map assigns labels to plate positions. Positions whose label is empty or NaN
// are present but unmapped.
type Map struct {
	labels    map[string]string
	positions []string
}

// Load reads a plate map CSV from path.
func Load(path string) (*Map, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return nil, fmt.Errorf("%w: %s is not a .csv file", ErrInvalid, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plate map: %w", err)
	}
	defer file.Close()
	m, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse reads either a two-column position,label table with an optional
// header, or a plate grid whose header row holds column numbers and whose
// first column holds row letters.
func Parse(r io.Reader) (*Map, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	records = slices.DeleteFunc(records, func(rec []string) bool {
		return len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "")
	})
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalid)
	}

	m := &Map{labels: map[string]string{}}
	if isGrid(records) {
		err = m.parseGrid(records)
	} else {
		err = m.parsePairs(records)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// isGrid reports whether records form a plate grid. A two-column file is a
// grid only when its corner cell is empty or no row is a position,label pair,
// so headerless "X,Y" coordinates with numeric labels stay pairs.
func isGrid(records [][]string) bool {
	header := records[0]
	corner := strings.TrimSpace(header[0])
	if len(header) < 2 || positionPattern.MatchString(corner) {
		return false
	}
	for _, cell := range header[1:] {
		if _, err := strconv.Atoi(strings.TrimSpace(cell)); err != nil {
			return false
		}
	}
	if corner == "" || len(header) > 2 {
		return true
	}
	return !slices.ContainsFunc(records, func(rec []string) bool { return len(rec) == 2 })
}

func (m *Map) parsePairs(records [][]string) error {
	if slices.Contains(headerNames, strings.ToLower(strings.TrimSpace(records[0][0]))) {
		records = records[1:]
	}
	for i, rec := range records {
		if len(rec) != 2 {
			return fmt.Errorf("%w: row %d has %d fields, want 2", ErrInvalid, i+1, len(rec))
		}
		if err := m.add(rec[0], rec[1]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Map) parseGrid(records [][]string) error {
	header := records[0]
	for _, rec := range records[1:] {
		row := strings.TrimSpace(rec[0])
		if row == "" {
			continue
		}
		for col := 1; col < len(rec) && col < len(header); col++ {
			if err := m.add(row+strings.TrimSpace(header[col]), rec[col]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Map) add(position, label string) error {
	key := normalizePosition(position)
	if key == "" {
		return fmt.Errorf("%w: empty position", ErrInvalid)
	}
	if _, dup := m.labels[key]; dup {
		return fmt.Errorf("%w: duplicate position %s", ErrInvalid, strings.TrimSpace(position))
	}
	label = strings.TrimSpace(label)
	if isUnmapped(label) {
		label = ""
	}
	m.labels[key] = label
	m.positions = append(m.positions, strings.TrimSpace(position))
	return nil
}

func isUnmapped(label string) bool {
	return label == "" || strings.EqualFold(label, "nan")
}

// normalizePosition folds case and strips zero padding so "a01" matches "A1".
func normalizePosition(position string) string {
	position = strings.TrimSpace(position)
	if match := positionPattern.FindStringSubmatch(position); match != nil {
		position = match[1] + match[2]
	}
	return textutil.FoldKey(position)
}

// Label returns the label for a spot coordinate. Unknown, empty and NaN
// labels report false.
func (m *Map) Label(coord string) (string, bool) {
	if m == nil {
		return "", false
	}
	label, ok := m.labels[normalizePosition(coord)]
	if !ok || label == "" {
		return "", false
	}
	return label, true
}

// Labels returns the distinct mapped labels in sorted order.
func (m *Map) Labels() []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, label := range m.labels {
		if label != "" && !slices.Contains(out, label) {
			out = append(out, label)
		}
	}
	slices.Sort(out)
	return out
}

// Count returns the number of positions carrying label.
func (m *Map) Count(label string) int {
	if m == nil || label == "" {
		return 0
	}
	n := 0
	for _, l := range m.labels {
		if l == label {
			n++
		}
	}
	return n
}

// Positions returns every position in file order, mapped or not.
func (m *Map) Positions() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.positions)
}
