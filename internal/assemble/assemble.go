package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"timsconvert/internal/acquisition"
	"timsconvert/internal/logging"
	"timsconvert/internal/spectrum"
)

// ErrParentOutsideChunk marks a product whose parent frame was not part of the
// assembled range. Chunk planning over parent frames never produces one.
var ErrParentOutsideChunk = errors.New("product parent frame outside assembled range")

// Options controls how records are assembled.
type Options struct {
	Mode            spectrum.Mode
	MS2Only         bool
	ExcludeMobility bool
	ProfileBins     int
	Encoding        spectrum.Encoding
}

// Assembler builds records from one acquisition.
type Assembler struct {
	schema   acquisition.Schema
	opts     Options
	mobility bool
	logger   *slog.Logger
}

// New resolves the effective options for schema.
func New(schema acquisition.Schema, opts Options, logger *slog.Logger) *Assembler {
	logger = logging.NewComponentLogger(logger, "assemble")
	if opts.Mode == spectrum.ModeRaw && !schema.SupportsRawMode() {
		logger.Info("raw export unavailable for schema; using centroid",
			logging.String("schema", schema.Kind().String()),
			logging.String("requested_mode", opts.Mode.String()),
		)
		opts.Mode = spectrum.ModeCentroid
	}
	if opts.Encoding == 0 {
		opts.Encoding = spectrum.Encoding64
	}
	return &Assembler{
		schema:   schema,
		opts:     opts,
		mobility: schema.SupportsMobility() && !opts.ExcludeMobility && opts.Mode != spectrum.ModeProfile,
		logger:   logger,
	}
}

// Options returns the effective options after fallbacks.
func (a *Assembler) Options() Options { return a.opts }

// MobilityEnabled reports whether records carry mobility arrays.
func (a *Assembler) MobilityEnabled() bool { return a.mobility }

// AssembleLCMS builds the parents and products of rng. Products are linked to
// parents by frame; a product whose parent lies outside rng is an error.
func (a *Assembler) AssembleLCMS(ctx context.Context, rng spectrum.FrameRange) (spectrum.Chunk, error) {
	var chunk spectrum.Chunk
	if !a.opts.MS2Only {
		for _, f := range a.schema.Frames(rng) {
			if f.MSLevel != 1 {
				continue
			}
			rec, err := a.frameRecord(ctx, f)
			if err != nil {
				return spectrum.Chunk{}, err
			}
			if rec != nil {
				chunk.Parents = append(chunk.Parents, rec)
			}
		}
	}

	for _, p := range a.schema.Products(rng) {
		if p.HasPrecursor && p.Parent != 0 && !rng.Contains(p.Parent) {
			return spectrum.Chunk{}, fmt.Errorf("%w: product %d in frame %d has parent %d outside %s",
				ErrParentOutsideChunk, p.Key, p.Frame, p.Parent, rng)
		}
		rec, err := a.productRecord(ctx, p)
		if err != nil {
			return spectrum.Chunk{}, err
		}
		if rec != nil {
			chunk.Products = append(chunk.Products, rec)
		}
	}

	a.logger.Debug("assembled chunk",
		logging.String("range", rng.String()),
		logging.Int("parents", len(chunk.Parents)),
		logging.Int("products", len(chunk.Products)),
	)
	return chunk, nil
}

// AssembleMALDI builds the records of rng in frame order. Every record carries
// the spot coordinate (and pixel, for imaging) of its frame.
func (a *Assembler) AssembleMALDI(ctx context.Context, rng spectrum.FrameRange) ([]*spectrum.Record, error) {
	frames := a.schema.Frames(rng)
	byID := make(map[int64]acquisition.Frame, len(frames))
	var records []*spectrum.Record
	for _, f := range frames {
		byID[f.ID] = f
		if f.MSLevel != 1 || a.opts.MS2Only {
			continue
		}
		rec, err := a.frameRecord(ctx, f)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	for _, p := range a.schema.Products(rng) {
		if f, ok := byID[p.Frame]; ok && p.Coord == "" {
			p.Coord, p.Pixel = f.Coord, f.Pixel
		}
		rec, err := a.productRecord(ctx, p)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	slices.SortStableFunc(records, func(x, y *spectrum.Record) int {
		switch {
		case x.Frame < y.Frame:
			return -1
		case x.Frame > y.Frame:
			return 1
		default:
			return x.MSLevel - y.MSLevel
		}
	})
	return records, nil
}

func (a *Assembler) frameRecord(ctx context.Context, f acquisition.Frame) (*spectrum.Record, error) {
	peaks, err := a.schema.Peaks(ctx, acquisition.PeakRequest{Frame: f.ID, Mode: a.opts.Mode})
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", f.ID, err)
	}
	peaks = a.shape(peaks)
	if peaks.Len() == 0 {
		return nil, nil
	}
	tic, stats := spectrum.ComputeStats(peaks.MZ, peaks.Intensity)
	return &spectrum.Record{
		Frame:           f.ID,
		MSLevel:         1,
		Polarity:        f.Polarity,
		Centroided:      a.opts.Mode.Centroided(),
		RetentionTime:   f.Time / 60,
		ScanType:        spectrum.ScanTypeMS1,
		MZ:              peaks.MZ,
		Intensity:       peaks.Intensity,
		Mobility:        peaks.Mobility,
		TotalIonCurrent: tic,
		Stats:           stats,
		Coord:           f.Coord,
		Pixel:           f.Pixel,
	}, nil
}

func (a *Assembler) productRecord(ctx context.Context, p acquisition.Product) (*spectrum.Record, error) {
	req := acquisition.PeakRequest{Frame: p.Frame, Mode: a.opts.Mode}
	if p.FromPrecursor {
		req.Precursor = p.Key
	}
	peaks, err := a.schema.Peaks(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("product %d in frame %d: %w", p.Key, p.Frame, err)
	}
	peaks = a.shape(peaks)
	if peaks.Len() == 0 {
		return nil, nil
	}
	tic, stats := spectrum.ComputeStats(peaks.MZ, peaks.Intensity)
	rec := &spectrum.Record{
		Frame:           p.Frame,
		MSLevel:         2,
		Polarity:        p.Polarity,
		Centroided:      a.opts.Mode.Centroided(),
		RetentionTime:   p.Time / 60,
		ScanType:        spectrum.ScanTypeMSn,
		MZ:              peaks.MZ,
		Intensity:       peaks.Intensity,
		Mobility:        peaks.Mobility,
		TotalIonCurrent: tic,
		Stats:           stats,
		CollisionEnergy: p.CollisionEnergy,
		Coord:           p.Coord,
		Pixel:           p.Pixel,
	}
	if !p.HasPrecursor {
		rec.NoPrecursor = true
		return rec, nil
	}

	rec.ParentFrame = p.Parent
	half := p.IsolationWidth / 2
	rec.Precursor = &spectrum.Precursor{
		SelectedIonMZ:        p.SelectedIonMZ,
		SelectedIonIntensity: p.Intensity,
		ChargeState:          p.Charge,
		TargetMZ:             p.TargetMZ,
		IsolationUpperOffset: half,
		IsolationLowerOffset: half,
	}
	if a.mobility && p.FromPrecursor {
		k0, ok, err := a.schema.PrecursorMobility(ctx, p.Key)
		if err != nil {
			return nil, err
		}
		if ok {
			rec.Precursor.SelectedIonMobility = &k0
			if charge, known := rec.Precursor.Charge(); known {
				ccs := CCS(k0, p.SelectedIonMZ, charge)
				rec.Precursor.SelectedIonCCS = &ccs
			}
		}
	}
	return rec, nil
}

// shape applies the mobility policy, profile rebinning and encoding width.
func (a *Assembler) shape(peaks spectrum.Peaks) spectrum.Peaks {
	if !a.mobility || len(peaks.Mobility) != len(peaks.MZ) {
		peaks.Mobility = nil
	}
	if peaks.Len() == 0 {
		return peaks
	}
	if a.opts.Mode == spectrum.ModeProfile && a.opts.ProfileBins > 0 {
		peaks.MZ, peaks.Intensity = Rebin(peaks.MZ, peaks.Intensity, a.opts.ProfileBins)
	}
	if a.opts.Encoding == spectrum.Encoding32 {
		round(peaks.MZ, a.opts.Encoding)
		round(peaks.Intensity, a.opts.Encoding)
		round(peaks.Mobility, a.opts.Encoding)
	}
	return peaks
}

func round(values []float64, enc spectrum.Encoding) {
	for i, v := range values {
		values[i] = enc.Round(v)
	}
}
