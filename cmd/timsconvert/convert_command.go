package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"timsconvert/internal/acquisition"
	"timsconvert/internal/config"
	"timsconvert/internal/convert"
	"timsconvert/internal/logging"
	"timsconvert/internal/preflight"
)

type convertFlags struct {
	outDir          string
	outFile         string
	mode            string
	ms2Only         bool
	excludeMobility bool
	profileBins     int
	encoding        int
	compression     string
	maldiOutput     string
	plateMap        string
	imzmlMode       string
	barebones       bool
	chunkSize       int
	verbose         bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert <input>...",
		Short: "Convert .d directories (or directories containing them)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyConvertFlags(cmd, *base, flags)
			if err != nil {
				return err
			}
			inputs, err := discoverInputs(args)
			if err != nil {
				return err
			}
			if flags.outFile != "" && len(inputs) > 1 {
				return fmt.Errorf("--outfile names a single output but %d inputs were found", len(inputs))
			}
			return runConvert(cmd, cfg, inputs, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.outDir, "outdir", "o", "", "Output directory (default: next to each input)")
	f.StringVar(&flags.outFile, "outfile", "", "Output file name for a single input")
	f.StringVar(&flags.mode, "mode", "", "Spectrum export mode: centroid, profile or raw")
	f.BoolVar(&flags.ms2Only, "ms2-only", false, "Write only MS2 spectra")
	f.BoolVar(&flags.excludeMobility, "exclude-mobility", false, "Omit the ion mobility array")
	f.IntVar(&flags.profileBins, "profile-bins", 0, "Rebin profile spectra onto this many bins (0 keeps native sampling)")
	f.IntVar(&flags.encoding, "encoding", 0, "Binary array precision: 32 or 64")
	f.StringVar(&flags.compression, "compression", "", "Binary array compression: zlib or none")
	f.StringVar(&flags.maldiOutput, "maldi-output-file", "", "MALDI dried-droplet output: combined, individual or sample")
	f.StringVar(&flags.plateMap, "maldi-plate-map", "", "Plate map CSV for individual and sample output")
	f.StringVar(&flags.imzmlMode, "imzml-mode", "", "imzML layout: processed or continuous")
	f.BoolVar(&flags.barebones, "barebones-metadata", false, "Omit software and data processing metadata")
	f.IntVar(&flags.chunkSize, "chunk-size", 0, "MS1 frames or MALDI spots per chunk")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Mirror log output to the terminal")

	return cmd
}

// applyConvertFlags overlays the flags the user set on a copy of cfg and
// validates the result.
func applyConvertFlags(cmd *cobra.Command, cfg config.Config, flags convertFlags) (*config.Config, error) {
	changed := cmd.Flags().Changed

	if changed("outdir") {
		dir, err := config.ExpandPath(strings.TrimSpace(flags.outDir))
		if err != nil {
			return nil, fmt.Errorf("resolve --outdir: %w", err)
		}
		cfg.Paths.OutputDir = dir
	}
	if changed("mode") {
		cfg.Conversion.Mode = strings.ToLower(strings.TrimSpace(flags.mode))
	}
	if changed("ms2-only") {
		cfg.Conversion.MS2Only = flags.ms2Only
	}
	if changed("exclude-mobility") {
		cfg.Conversion.ExcludeMobility = flags.excludeMobility
	}
	if changed("profile-bins") {
		cfg.Conversion.ProfileBins = flags.profileBins
	}
	if changed("encoding") {
		cfg.Conversion.Encoding = flags.encoding
	}
	if changed("compression") {
		cfg.Conversion.Compression = strings.ToLower(strings.TrimSpace(flags.compression))
	}
	if changed("chunk-size") {
		cfg.Conversion.ChunkSize = flags.chunkSize
	}
	if changed("barebones-metadata") {
		cfg.Conversion.BarebonesMetadata = flags.barebones
	}
	if changed("maldi-output-file") {
		cfg.Maldi.OutputFile = strings.ToLower(strings.TrimSpace(flags.maldiOutput))
	}
	if changed("maldi-plate-map") {
		plateMap, err := config.ExpandPath(strings.TrimSpace(flags.plateMap))
		if err != nil {
			return nil, fmt.Errorf("resolve --maldi-plate-map: %w", err)
		}
		cfg.Maldi.PlateMap = plateMap
	}
	if changed("imzml-mode") {
		cfg.Maldi.ImzMLMode = strings.ToLower(strings.TrimSpace(flags.imzmlMode))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func discoverInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		found, err := acquisition.Discover(arg)
		if err != nil {
			return nil, err
		}
		for _, dir := range found {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", dir, err)
			}
			if !slices.Contains(inputs, abs) {
				inputs = append(inputs, abs)
			}
		}
	}
	return inputs, nil
}

func runConvert(cmd *cobra.Command, cfg *config.Config, inputs []string, flags convertFlags) error {
	out := cmd.OutOrStdout()

	checks := preflight.RunAll(cfg, inputs)
	if err := preflight.Failed(checks); err != nil {
		fmt.Fprintln(out, renderPreflight(checks))
		return err
	}

	runID := uuid.NewString()
	logger, logPath, err := logging.NewForRun(cfg, logging.RunOptions{
		RunID:   runID,
		Console: flags.verbose,
		Color:   flags.verbose && isTerminal(os.Stdout),
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "timsconvert-*.log",
		Exclude: []string{logPath},
	})

	logger.Info("conversion run started",
		logging.String("version", convert.Version),
		logging.Int("inputs", len(inputs)),
		logging.String("mode", cfg.Conversion.Mode),
		logging.Bool("ms2_only", cfg.Conversion.MS2Only),
		logging.Bool("exclude_mobility", cfg.Conversion.ExcludeMobility),
		logging.Int("profile_bins", cfg.Conversion.ProfileBins),
		logging.Int("encoding", cfg.Conversion.Encoding),
		logging.String("compression", cfg.Conversion.Compression),
		logging.Int("chunk_size", cfg.Conversion.ChunkSize),
		logging.String("maldi_output_file", cfg.Maldi.OutputFile),
		logging.String("maldi_plate_map", cfg.Maldi.PlateMap),
		logging.String("imzml_mode", cfg.Maldi.ImzMLMode),
		logging.String(logging.FieldOutput, cfg.Paths.OutputDir),
	)

	opts, err := convert.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.OutputFile = strings.TrimSpace(flags.outFile)

	results := convert.New(opts, logger).ConvertAll(cmd.Context(), inputs)
	fmt.Fprintln(out, renderResults(results))
	fmt.Fprintf(out, "Log: %s\n", logPath)

	return summarizeResults(cmd.Context(), results, len(inputs))
}

// summarizeResults turns per-input failures into the command's exit error.
func summarizeResults(ctx context.Context, results []convert.Result, inputs int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, inputs)
	}
	if len(results) < inputs {
		return errors.New("conversion stopped before every input was processed")
	}
	return nil
}

func renderResults(results []convert.Result) string {
	headers := []string{"Input", "Status", "Output", "Declared", "Written", "Patched"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}

	var rows [][]string
	spectra := 0
	for _, r := range results {
		input := filepath.Base(r.Input)
		status := string(r.Status())
		if r.Err != nil {
			rows = append(rows, []string{input, status, r.Err.Error(), "", "", ""})
			continue
		}
		for i, o := range r.Outputs {
			name := input
			if i > 0 {
				name = ""
			}
			rows = append(rows, []string{
				name,
				status,
				filepath.Base(o.Path),
				strconv.Itoa(o.Declared),
				strconv.Itoa(o.Written),
				yesNo(o.Patched),
			})
		}
		spectra += r.Spectra()
	}
	footer := []string{fmt.Sprintf("%d inputs", len(results)), "", "", "", strconv.Itoa(spectra), ""}
	return renderTable(headers, rows, aligns, footer...)
}

func renderPreflight(checks []preflight.Result) string {
	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		status := "ok"
		if !c.Passed {
			status = "FAIL"
		}
		rows = append(rows, []string{c.Name, status, c.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}
