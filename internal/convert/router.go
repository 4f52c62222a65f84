package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"timsconvert/internal/acquisition"
	"timsconvert/internal/logging"
	"timsconvert/internal/platemap"
	"timsconvert/internal/spectrum"
	"timsconvert/internal/textutil"
)

// Router sends dried-droplet records to the files of one output topology.
// A Router serves a single conversion and is not reusable.
type Router struct {
	s        *session
	topology spectrum.Topology
	plate    *platemap.Map

	combined *stream

	samples map[string]*stream
	labels  []string

	spotSeen map[string]int
	// claimed maps each output path to the label or spot that owns it.
	claimed map[string]string

	outputs []Output
	dropped int
}

// route converts a dried-droplet acquisition with the configured topology.
func (s *session) route(ctx context.Context) ([]Output, error) {
	topology := s.conv.opts.Topology
	var plate *platemap.Map
	if topology.RequiresPlateMap() {
		if s.conv.opts.PlateMap == "" {
			return nil, Wrap(ErrPrecondition, "maldi", "plate map", fmt.Sprintf("required for %s output", topology), nil)
		}
		m, err := platemap.Load(s.conv.opts.PlateMap)
		if err != nil {
			return nil, Wrap(ErrPrecondition, "maldi", "plate map", "", err)
		}
		plate = m
	}
	ids := s.schema.FrameIDs()
	if len(ids) == 0 {
		return nil, Wrap(ErrPrecondition, "maldi", "plan", "acquisition has no frames", nil)
	}

	r := &Router{s: s, topology: topology, plate: plate, spotSeen: map[string]int{}, claimed: map[string]string{}}
	if err := r.open(); err != nil {
		return nil, err
	}

	planner := s.planner()
	total := planner.Count(len(ids))
	done := 0
	for rng := range planner.Ranges(ids) {
		if err := ctx.Err(); err != nil {
			r.abort()
			return nil, err
		}
		records, err := s.asm.AssembleMALDI(ctx, rng)
		if err != nil {
			r.abort()
			return nil, assembleError("maldi", rng, err)
		}
		for _, rec := range records {
			if err := r.Route(rec); err != nil {
				r.abort()
				return nil, err
			}
		}
		done++
		s.reportProgress(topology.String(), done, total, r.written())
	}
	if r.dropped > 0 {
		s.logger.Debug("spectra without a plate map label dropped", logging.Int("count", r.dropped))
	}
	return r.finish()
}

// open creates the files whose set is known up front.
func (r *Router) open() error {
	switch r.topology {
	case spectrum.TopologyCombined:
		st, err := r.s.openStream(outputSpec{
			Path:     filepath.Join(r.s.outDir, r.s.base+".mzML"),
			Declared: len(r.s.schema.FrameIDs()),
			Title:    r.s.base,
		})
		if err != nil {
			return err
		}
		r.combined = st
	case spectrum.TopologySample:
		r.samples = map[string]*stream{}
		labels := r.plate.Labels()
		paths := make([]string, len(labels))
		for i, label := range labels {
			paths[i] = filepath.Join(r.s.outDir, textutil.SanitizeFileName(label)+".mzML")
			if err := r.claim(paths[i], "label "+strconv.Quote(label)); err != nil {
				return err
			}
		}
		for i, label := range labels {
			st, err := r.s.openStream(outputSpec{
				Path:     paths[i],
				Declared: r.plate.Count(label),
				Title:    label,
			})
			if err != nil {
				r.abort()
				return err
			}
			r.samples[label] = st
			r.labels = append(r.labels, label)
		}
	}
	return nil
}

// Route writes rec to the file its topology assigns.
func (r *Router) Route(rec *spectrum.Record) error {
	switch r.topology {
	case spectrum.TopologySample:
		label, ok := r.plate.Label(rec.Coord)
		if !ok {
			r.dropped++
			return nil
		}
		return r.samples[label].write(rec, nil)
	case spectrum.TopologyIndividual:
		return r.routeSpot(rec)
	default:
		return r.combined.write(rec, nil)
	}
}

// claim records owner as the only writer of path. Distinct labels can
// sanitize to the same file name.
func (r *Router) claim(path, owner string) error {
	if prev, ok := r.claimed[path]; ok {
		return Wrap(ErrPrecondition, "maldi", "output name",
			fmt.Sprintf("%s and %s both map to %s", prev, owner, filepath.Base(path)), nil)
	}
	r.claimed[path] = owner
	return nil
}

// routeSpot writes rec to a file of its own. Later records of a spot that
// already has a file get a numeric suffix.
func (r *Router) routeSpot(rec *spectrum.Record) error {
	title, ok := r.plate.Label(rec.Coord)
	if !ok {
		title = acquisition.BaseName(r.s.input)
	}
	name := title + "_" + rec.Coord
	r.spotSeen[rec.Coord]++
	if n := r.spotSeen[rec.Coord]; n > 1 {
		name = fmt.Sprintf("%s_%d", name, n)
	}
	path := filepath.Join(r.s.outDir, textutil.SanitizeFileName(name)+".mzML")
	if err := r.claim(path, "spot "+strconv.Quote(rec.Coord)); err != nil {
		return err
	}
	out, err := r.s.withStream(outputSpec{Path: path, Declared: 1, Title: title}, func(st *stream) error {
		return st.write(rec, nil)
	})
	if err != nil {
		return err
	}
	r.outputs = append(r.outputs, out)
	return nil
}

func (r *Router) written() int {
	n := 0
	for _, out := range r.outputs {
		n += out.Written
	}
	for _, st := range r.streams() {
		n += st.counter.Count()
	}
	return n
}

// streams lists the files still open.
func (r *Router) streams() []*stream {
	var out []*stream
	if r.combined != nil {
		out = append(out, r.combined)
	}
	for _, label := range r.labels {
		if st := r.samples[label]; st != nil {
			out = append(out, st)
		}
	}
	return out
}

// finish closes and reconciles every open file in a stable order.
func (r *Router) finish() ([]Output, error) {
	if r.combined != nil {
		st := r.combined
		r.combined = nil
		out, err := st.finish(r.s.conv.reconciler)
		if err != nil {
			return nil, err
		}
		r.outputs = append(r.outputs, out)
	}
	for _, label := range r.labels {
		st := r.samples[label]
		delete(r.samples, label)
		out, err := st.finish(r.s.conv.reconciler)
		if err != nil {
			r.abort()
			return nil, err
		}
		r.outputs = append(r.outputs, out)
	}
	return r.outputs, nil
}

// abort discards every file still open. Files already finished stay.
func (r *Router) abort() {
	for _, st := range r.streams() {
		st.abort()
	}
	r.combined = nil
	clear(r.samples)
}
