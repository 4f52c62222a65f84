package convert

import (
	"context"
	"path/filepath"

	"timsconvert/internal/imzml"
	"timsconvert/internal/logging"
	"timsconvert/internal/spectrum"
)

// convertImaging streams MS1 pixel spectra into an imzML and .ibd pair. The
// imzML index is written when the writer closes, so no count reconciliation
// is needed.
func (s *session) convertImaging(ctx context.Context) (Output, error) {
	ids := s.schema.FrameIDs()
	if len(ids) == 0 {
		return Output{}, Wrap(ErrPrecondition, "imaging", "plan", "acquisition has no frames", nil)
	}
	path := filepath.Join(s.outDir, s.base+".imzML")
	lock, err := lockOutput(path)
	if err != nil {
		return Output{}, err
	}
	defer unlockOutput(lock, s.logger)

	mobility := s.asm.MobilityEnabled()
	writer, err := imzml.Create(path, imzml.Options{
		Mode:            s.conv.opts.ImzMLMode,
		Encoding:        s.conv.opts.Assemble.Encoding,
		Compression:     s.conv.opts.Compression,
		Polarity:        s.runPolarity(ids),
		Centroided:      s.asm.Options().Mode.Centroided(),
		IncludeMobility: mobility,
		SoftwareID:      SoftwareID,
		SoftwareVersion: Version,
	})
	if err != nil {
		return Output{}, Wrap(ErrOutput, "imaging", "create", path, err)
	}

	planner := s.planner()
	total := planner.Count(len(ids))
	done, skipped := 0, 0
	for rng := range planner.Ranges(ids) {
		if err := ctx.Err(); err != nil {
			s.discardImaging(writer)
			return Output{}, err
		}
		records, err := s.asm.AssembleMALDI(ctx, rng)
		if err != nil {
			s.discardImaging(writer)
			return Output{}, assembleError("imaging", rng, err)
		}
		for _, rec := range records {
			if rec.MSLevel != 1 || rec.Pixel == nil {
				skipped++
				continue
			}
			values := rec.Mobility
			if mobility && values == nil {
				values = make([]float64, len(rec.MZ))
			}
			if err := writer.AddSpectrum(rec.MZ, rec.Intensity, values, *rec.Pixel); err != nil {
				s.discardImaging(writer)
				return Output{}, Wrap(ErrOutput, "imaging", "add spectrum", describe(rec), err)
			}
		}
		done++
		s.reportProgress(filepath.Base(path), done, total, writer.Written())
	}
	if skipped > 0 {
		s.logger.Debug("records without a pixel position skipped", logging.Int("count", skipped))
	}
	if err := writer.Close(); err != nil {
		return Output{}, Wrap(ErrOutput, "imaging", "close", path, err)
	}
	return Output{Path: path, Declared: writer.Written(), Written: writer.Written()}, nil
}

// runPolarity is the shared polarity of every frame, or unknown when mixed.
func (s *session) runPolarity(ids []int64) spectrum.Polarity {
	frames := s.schema.Frames(spectrum.FrameRange{Start: ids[0], Stop: max(s.schema.LastFrame(), ids[len(ids)-1]) + 1})
	if len(frames) == 0 {
		return spectrum.PolarityUnknown
	}
	polarity := frames[0].Polarity
	for _, f := range frames[1:] {
		if f.Polarity != polarity {
			return spectrum.PolarityUnknown
		}
	}
	return polarity
}

func (s *session) discardImaging(w *imzml.Writer) {
	if err := w.Discard(); err != nil {
		logging.WarnWithContext(s.logger, "partial imaging output not removed", "cleanup_failed",
			logging.String("path", w.Path()),
			logging.Error(Wrap(ErrCleanup, "imaging", "discard", "", err)),
		)
	}
}
