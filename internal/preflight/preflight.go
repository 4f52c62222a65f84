package preflight

import (
	"errors"
	"fmt"
	"strings"

	"timsconvert/internal/config"
	"timsconvert/internal/spectrum"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to cfg and the given inputs.
func RunAll(cfg *config.Config, inputs []string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Log directory (always checked)
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// Output directory (when configured; otherwise each input's parent is used)
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}

	for _, input := range inputs {
		results = append(results, CheckInput(input))
	}

	// Plate map (only for topologies that route by label)
	if topology, err := spectrum.ParseTopology(cfg.Maldi.OutputFile); err == nil && topology.RequiresPlateMap() {
		results = append(results, CheckPlateMap(cfg.Maldi.PlateMap))
	}
	return results
}

// Failed joins the details of every failed result, or returns nil.
func Failed(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return errors.New("preflight failed: " + strings.Join(failed, "; "))
}
