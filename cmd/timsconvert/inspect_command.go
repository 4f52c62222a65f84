package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"timsconvert/internal/acquisition"
	"timsconvert/internal/convert"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <input>...",
		Short: "Summarize acquisitions without converting them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := discoverInputs(args)
			if err != nil {
				return err
			}

			headers := []string{"Input", "Schema", "Application", "Frames", "MS1", "MS2", "Declared", "Levels", "Mobility", "Software"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft}
			rows := make([][]string, 0, len(inputs))
			for _, input := range inputs {
				row, err := inspectInput(cmd, input)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}
}

func inspectInput(cmd *cobra.Command, input string) ([]string, error) {
	schema, err := acquisition.Open(cmd.Context(), input, acquisition.OpenOptions{})
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", input, err)
	}
	defer schema.Close()

	levels := make([]string, 0, 2)
	for _, level := range schema.ClassifyMSLevels() {
		levels = append(levels, "MS"+strconv.Itoa(level))
	}

	meta := schema.Metadata()
	software, _ := meta.Get(acquisition.MetaAcquisitionSoftware)
	if version, ok := meta.Get(acquisition.MetaAcquisitionSoftwareVersion); ok && software != "" {
		software += " " + version
	}

	return []string{
		filepath.Base(input),
		schema.Kind().String(),
		schema.Application().String(),
		strconv.Itoa(schema.RowCountFor(acquisition.CountFrames)),
		strconv.Itoa(schema.RowCountFor(acquisition.CountMS1)),
		strconv.Itoa(schema.RowCountFor(acquisition.CountMS2)),
		strconv.Itoa(convert.DeclaredCount(schema)),
		strings.Join(levels, ","),
		yesNo(schema.SupportsMobility()),
		software,
	}, nil
}
