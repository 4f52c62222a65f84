// Package chunking partitions ordered frame identifiers into bounded,
// contiguous half-open ranges so acquisitions can be converted one chunk at a
// time.
package chunking

import (
	"iter"

	"timsconvert/internal/spectrum"
)

// Planner yields frame ranges spanning Size identifiers each.
type Planner struct {
	// Size is the number of identifiers per range. Values below 1 are treated as 1.
	Size int
	// Last is the true last frame identifier of the acquisition. The final
	// range always reaches one past max(Last, ids[len(ids)-1]).
	Last int64
}

// Ranges returns a lazy sequence of ranges over ids, which must be ascending
// and unique. Iterating the sequence again restarts from the first range.
func (p Planner) Ranges(ids []int64) iter.Seq[spectrum.FrameRange] {
	size := p.Size
	if size < 1 {
		size = 1
	}
	return func(yield func(spectrum.FrameRange) bool) {
		if len(ids) == 0 {
			return
		}
		end := ids[len(ids)-1]
		if p.Last > end {
			end = p.Last
		}
		for k := 0; k < len(ids); k += size {
			rng := spectrum.FrameRange{Start: ids[k], Stop: end + 1}
			if next := k + size; next < len(ids) {
				rng.Stop = ids[next]
			}
			if !yield(rng) {
				return
			}
		}
	}
}

// Count returns how many ranges Ranges would yield for n identifiers.
func (p Planner) Count(n int) int {
	if n <= 0 {
		return 0
	}
	size := p.Size
	if size < 1 {
		size = 1
	}
	return (n + size - 1) / size
}
