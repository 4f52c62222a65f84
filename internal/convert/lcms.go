package convert

import (
	"context"
	"path/filepath"
)

// convertLCMS streams every chunk of the acquisition into one mzML file.
// Chunks are planned over MS1 frames so each product lands in the chunk of
// its parent; acquisitions without MS1 frames are chunked over all frames.
func (s *session) convertLCMS(ctx context.Context) (Output, error) {
	ids := s.schema.ParentFrameIDs()
	if len(ids) == 0 {
		ids = s.schema.FrameIDs()
	}
	if len(ids) == 0 {
		return Output{}, Wrap(ErrPrecondition, "lcms", "plan", "acquisition has no frames", nil)
	}
	planner := s.planner()
	total := planner.Count(len(ids))

	spec := outputSpec{
		Path:     filepath.Join(s.outDir, s.base+".mzML"),
		Declared: DeclaredCount(s.schema),
	}
	return s.withStream(spec, func(st *stream) error {
		done := 0
		for rng := range planner.Ranges(ids) {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunk, err := s.asm.AssembleLCMS(ctx, rng)
			if err != nil {
				return assembleError("lcms", rng, err)
			}
			for _, entry := range chunk.Ordered() {
				if err := st.write(entry.Record, entry.Parent); err != nil {
					return err
				}
			}
			done++
			s.reportProgress(filepath.Base(spec.Path), done, total, st.counter.Count())
		}
		return nil
	})
}
