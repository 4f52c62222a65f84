package acquisition

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"slices"
	"sort"

	"timsconvert/internal/spectrum"
)

// catalog holds the tabular rows shared by every schema adapter. Frame and
// product rows are small and loaded once; peak arrays are fetched per chunk.
type catalog struct {
	path     string
	meta     Metadata
	db       *sql.DB
	decoder  Decoder
	frames   []Frame
	products []Product

	parentIDs []int64
	frameIDs  []int64
}

func newCatalog(path string, db *sql.DB, meta Metadata, frames []Frame, products []Product) *catalog {
	slices.SortFunc(frames, func(a, b Frame) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortStableFunc(products, func(a, b Product) int { return cmp.Compare(a.Frame, b.Frame) })

	c := &catalog{path: path, db: db, meta: meta, frames: frames, products: products}
	c.frameIDs = make([]int64, 0, len(frames))
	for _, f := range frames {
		c.frameIDs = append(c.frameIDs, f.ID)
		if f.MSLevel == 1 {
			c.parentIDs = append(c.parentIDs, f.ID)
		}
	}
	return c
}

func (c *catalog) Path() string { return c.path }

func (c *catalog) Metadata() Metadata { return c.meta }

func (c *catalog) Application() Application { return applicationFor(c.meta) }

func (c *catalog) ParentFrameIDs() []int64 { return c.parentIDs }

func (c *catalog) FrameIDs() []int64 { return c.frameIDs }

func (c *catalog) LastFrame() int64 {
	if len(c.frameIDs) == 0 {
		return 0
	}
	return c.frameIDs[len(c.frameIDs)-1]
}

func (c *catalog) ClassifyMSLevels() []int {
	var levels []int
	for _, f := range c.frames {
		if !slices.Contains(levels, f.MSLevel) {
			levels = append(levels, f.MSLevel)
		}
	}
	if len(c.products) > 0 && !slices.Contains(levels, 2) {
		levels = append(levels, 2)
	}
	slices.Sort(levels)
	return levels
}

func (c *catalog) countLevel(level int) int {
	n := 0
	for _, f := range c.frames {
		if f.MSLevel == level {
			n++
		}
	}
	return n
}

// Frames returns the frame rows inside rng.
func (c *catalog) Frames(rng spectrum.FrameRange) []Frame {
	lo := sort.Search(len(c.frames), func(i int) bool { return c.frames[i].ID >= rng.Start })
	hi := sort.Search(len(c.frames), func(i int) bool { return c.frames[i].ID >= rng.Stop })
	return c.frames[lo:hi]
}

// Products returns the product rows whose data frame lies inside rng.
func (c *catalog) Products(rng spectrum.FrameRange) []Product {
	lo := sort.Search(len(c.products), func(i int) bool { return c.products[i].Frame >= rng.Start })
	hi := sort.Search(len(c.products), func(i int) bool { return c.products[i].Frame >= rng.Stop })
	return c.products[lo:hi]
}

func (c *catalog) Peaks(ctx context.Context, req PeakRequest) (spectrum.Peaks, error) {
	if c.decoder == nil {
		return spectrum.Peaks{}, errors.New("acquisition: no peak decoder configured")
	}
	return c.decoder.Peaks(ctx, req)
}

func (c *catalog) PrecursorMobility(ctx context.Context, precursor int64) (float64, bool, error) {
	if c.decoder == nil {
		return 0, false, nil
	}
	return c.decoder.PrecursorMobility(ctx, precursor)
}

func (c *catalog) Close() error {
	var errs []error
	if c.decoder != nil {
		errs = append(errs, c.decoder.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}
