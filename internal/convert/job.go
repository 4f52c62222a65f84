package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"timsconvert/internal/acquisition"
	"timsconvert/internal/assemble"
	"timsconvert/internal/chunking"
	"timsconvert/internal/config"
	"timsconvert/internal/logging"
	"timsconvert/internal/mzml"
	"timsconvert/internal/preflight"
	"timsconvert/internal/spectrum"
)

// Options configures a Converter.
type Options struct {
	// OutputDir defaults to the parent directory of each input.
	OutputDir string
	// OutputFile names the combined output; it is only meaningful for a
	// single input.
	OutputFile string

	Assemble    assemble.Options
	Compression spectrum.Compression
	ChunkSize   int
	Barebones   bool

	Topology  spectrum.Topology
	PlateMap  string
	ImzMLMode spectrum.ImzMLMode

	// Decoder overrides the bundled peak decoder.
	Decoder acquisition.Decoder
	// Reconciler defaults to TextPatchReconciler.
	Reconciler CountReconciler
}

// OptionsFromConfig resolves the conversion settings of cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, err := spectrum.ParseMode(cfg.Conversion.Mode)
	if err != nil {
		return Options{}, err
	}
	encoding, err := spectrum.ParseEncoding(cfg.Conversion.Encoding)
	if err != nil {
		return Options{}, err
	}
	compression, err := spectrum.ParseCompression(cfg.Conversion.Compression)
	if err != nil {
		return Options{}, err
	}
	topology, err := spectrum.ParseTopology(cfg.Maldi.OutputFile)
	if err != nil {
		return Options{}, err
	}
	imzmlMode, err := spectrum.ParseImzMLMode(cfg.Maldi.ImzMLMode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		OutputDir: cfg.Paths.OutputDir,
		Assemble: assemble.Options{
			Mode:            mode,
			MS2Only:         cfg.Conversion.MS2Only,
			ExcludeMobility: cfg.Conversion.ExcludeMobility,
			ProfileBins:     cfg.Conversion.ProfileBins,
			Encoding:        encoding,
		},
		Compression: compression,
		ChunkSize:   cfg.Conversion.ChunkSize,
		Barebones:   cfg.Conversion.BarebonesMetadata,
		Topology:    topology,
		PlateMap:    cfg.Maldi.PlateMap,
		ImzMLMode:   imzmlMode,
	}, nil
}

// Output describes one file produced by a conversion.
type Output struct {
	Path     string
	Declared int
	Written  int
	Patched  bool
}

// Result is the outcome of converting one input.
type Result struct {
	Input       string
	Kind        acquisition.Kind
	Application acquisition.Application
	Outputs     []Output
	Duration    time.Duration
	Err         error
}

// Status classifies the result for reporting.
func (r Result) Status() Status { return StatusFor(r.Err) }

// Spectra returns the number of spectra written across all outputs.
func (r Result) Spectra() int {
	n := 0
	for _, o := range r.Outputs {
		n += o.Written
	}
	return n
}

// Converter turns acquisitions into mzML or imzML files. It converts one
// input at a time and is not safe for concurrent use.
type Converter struct {
	opts       Options
	logger     *slog.Logger
	reconciler CountReconciler
}

// New constructs a Converter.
func New(opts Options, logger *slog.Logger) *Converter {
	logger = logging.NewComponentLogger(logger, "convert")
	if opts.Assemble.Encoding == 0 {
		opts.Assemble.Encoding = spectrum.Encoding64
	}
	reconciler := opts.Reconciler
	if reconciler == nil {
		reconciler = TextPatchReconciler{Logger: logger}
	}
	return &Converter{opts: opts, logger: logger, reconciler: reconciler}
}

// ConvertAll converts each input in turn. A failed input is reported in its
// result and the next input is still converted; cancellation stops the loop.
func (c *Converter) ConvertAll(ctx context.Context, inputs []string) []Result {
	results := make([]Result, 0, len(inputs))
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Input: input, Err: err})
			break
		}
		results = append(results, c.Convert(ctx, input))
	}
	return results
}

// Convert converts a single .d directory.
func (c *Converter) Convert(ctx context.Context, input string) Result {
	start := time.Now()
	ctx = logging.WithInput(ctx, input)
	logger := logging.WithContext(ctx, c.logger)

	res := Result{Input: input}
	res.Outputs, res.Err = c.convert(ctx, input, logger, &res)
	res.Duration = time.Since(start)

	if res.Err != nil {
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			logging.String("status", string(res.Status())),
			logging.Error(res.Err),
		)
		return res
	}
	logger.Info("conversion finished",
		logging.Int("outputs", len(res.Outputs)),
		logging.Int("spectra", res.Spectra()),
		logging.Duration("duration", res.Duration),
	)
	return res
}

func (c *Converter) convert(ctx context.Context, input string, logger *slog.Logger, res *Result) ([]Output, error) {
	outDir := c.opts.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(filepath.Clean(input))
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, Wrap(ErrPrecondition, "convert", "output directory", outDir, err)
	}
	if check := preflight.CheckDirectoryAccess("Output directory", outDir); !check.Passed {
		return nil, Wrap(ErrPrecondition, "convert", "output directory", check.Detail, nil)
	}

	schema, err := acquisition.Open(ctx, input, acquisition.OpenOptions{Decoder: c.opts.Decoder, Logger: logger})
	if err != nil {
		if errors.Is(err, acquisition.ErrUnsupportedInput) {
			return nil, Wrap(ErrPrecondition, "convert", "open", "", err)
		}
		return nil, Wrap(ErrInput, "convert", "open", input, err)
	}
	defer func() {
		if err := schema.Close(); err != nil {
			logger.Warn("failed to close acquisition", logging.Error(err))
		}
	}()
	res.Kind, res.Application = schema.Kind(), schema.Application()

	s := c.newSession(input, outDir, schema, logger)
	s.logger.Info("converting acquisition",
		logging.String("schema", schema.Kind().String()),
		logging.String("application", schema.Application().String()),
		logging.String("mode", s.asm.Options().Mode.String()),
		logging.Int("frames", len(schema.FrameIDs())),
	)

	switch schema.Application() {
	case acquisition.ApplicationMALDIImaging:
		out, err := s.convertImaging(ctx)
		if err != nil {
			return nil, err
		}
		return []Output{out}, nil
	case acquisition.ApplicationMALDIDriedDroplet:
		return s.route(ctx)
	default:
		out, err := s.convertLCMS(ctx)
		if err != nil {
			return nil, err
		}
		return []Output{out}, nil
	}
}

// session holds the per-input state shared by the output paths.
type session struct {
	conv      *Converter
	input     string
	outDir    string
	base      string
	schema    acquisition.Schema
	asm       *assemble.Assembler
	metadata  mzml.Metadata
	startTime string
	records   RecordWriter
	logger    *slog.Logger
	progress  *logging.ProgressSampler
}

func (c *Converter) newSession(input, outDir string, schema acquisition.Schema, logger *slog.Logger) *session {
	asm := assemble.New(schema, c.opts.Assemble, logger)
	base := acquisition.BaseName(input)
	if name := strings.TrimSpace(c.opts.OutputFile); name != "" {
		name = filepath.Base(name)
		base = strings.TrimSuffix(name, filepath.Ext(name))
	}
	start, _ := schema.Metadata().Get(acquisition.MetaAcquisitionDateTime)
	return &session{
		conv:   c,
		input:  input,
		outDir: outDir,
		base:   base,
		schema: schema,
		asm:    asm,
		metadata: BuildRunMetadata(schema, MetadataOptions{
			Input:     input,
			Mode:      asm.Options().Mode,
			MS2Only:   c.opts.Assemble.MS2Only,
			Barebones: c.opts.Barebones,
		}),
		startTime: start,
		records:   RecordWriter{MALDI: schema.Application().IsMALDI()},
		logger:    logger,
		progress:  logging.NewProgressSampler(10),
	}
}

func (s *session) planner() chunking.Planner {
	return chunking.Planner{Size: s.conv.opts.ChunkSize, Last: s.schema.LastFrame()}
}

// reportProgress logs chunk progress at most once per ten percent.
func (s *session) reportProgress(label string, done, total, spectra int) {
	percent := logging.Percent(done, total)
	if !s.progress.ShouldLog(percent, label) {
		return
	}
	s.logger.Info("conversion progress",
		logging.String("output", label),
		logging.String("chunks", fmt.Sprintf("%d/%d", done, total)),
		logging.Int("spectra", spectra),
	)
}

// assembleError classifies an assembler failure.
func assembleError(stage string, rng spectrum.FrameRange, err error) error {
	if errors.Is(err, assemble.ErrParentOutsideChunk) {
		return Wrap(ErrDefect, stage, "assemble", rng.String(), err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return Wrap(ErrInput, stage, "assemble", rng.String(), err)
}
