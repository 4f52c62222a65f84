package spectrum

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Polarity of the scan.
type Polarity int

const (
	PolarityUnknown Polarity = iota
	PolarityPositive
	PolarityNegative
)

// ParsePolarity maps instrument polarity markers ("+", "-", "positive"...) to a Polarity.
func ParsePolarity(value string) Polarity {
	switch value {
	case "+", "positive", "Positive", "0":
		return PolarityPositive
	case "-", "negative", "Negative", "1":
		return PolarityNegative
	default:
		return PolarityUnknown
	}
}

func (p Polarity) String() string {
	switch p {
	case PolarityPositive:
		return "positive"
	case PolarityNegative:
		return "negative"
	default:
		return "unknown"
	}
}

// ScanType is the controlled vocabulary term naming the spectrum kind.
type ScanType string

const (
	ScanTypeMS1 ScanType = "MS1 spectrum"
	ScanTypeMSn ScanType = "MSn spectrum"
)

// FrameRange is a half-open interval [Start, Stop) of frame identifiers.
type FrameRange struct {
	Start int64
	Stop  int64
}

// Contains reports whether id lies inside the range.
func (r FrameRange) Contains(id int64) bool {
	return id >= r.Start && id < r.Stop
}

func (r FrameRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.Stop)
}

// Peaks holds the arrays decoded for one spectrum. Mobility is nil when the
// acquisition exposes no per-point ion mobility.
type Peaks struct {
	MZ        []float64
	Intensity []float64
	Mobility  []float64
}

// Len returns the number of data points.
func (p Peaks) Len() int {
	return len(p.MZ)
}

// PeakStats summarises a spectrum. MS2 records from some schemas carry none.
type PeakStats struct {
	BasePeakMZ        float64
	BasePeakIntensity float64
	HighMZ            float64
	LowMZ             float64
}

// ComputeStats returns the total ion current and peak statistics for the arrays.
// Empty input yields zero values and nil stats.
func ComputeStats(mz, intensity []float64) (float64, *PeakStats) {
	if len(mz) == 0 || len(intensity) == 0 {
		return 0, nil
	}
	stats := &PeakStats{LowMZ: mz[0], HighMZ: mz[0]}
	var tic float64
	base := -1
	for i := range mz {
		if i >= len(intensity) {
			break
		}
		tic += intensity[i]
		if base < 0 || intensity[i] > intensity[base] {
			base = i
		}
		if mz[i] < stats.LowMZ {
			stats.LowMZ = mz[i]
		}
		if mz[i] > stats.HighMZ {
			stats.HighMZ = mz[i]
		}
	}
	stats.BasePeakMZ = mz[base]
	stats.BasePeakIntensity = intensity[base]
	return tic, stats
}

// Pixel is an imaging raster position.
type Pixel struct {
	X int
	Y int
}

// Precursor describes the isolated ion of an MS2 record.
type Precursor struct {
	SelectedIonMZ        float64
	SelectedIonIntensity *float64
	SelectedIonMobility  *float64
	SelectedIonCCS       *float64
	// ChargeState is zero or NaN when unknown.
	ChargeState          float64
	TargetMZ             float64
	IsolationUpperOffset float64
	IsolationLowerOffset float64
}

// Charge returns the integer charge and whether it is known and non-zero.
func (p *Precursor) Charge() (int, bool) {
	if p == nil || math.IsNaN(p.ChargeState) || math.IsInf(p.ChargeState, 0) {
		return 0, false
	}
	charge := int(p.ChargeState)
	if charge == 0 {
		return 0, false
	}
	return charge, true
}

// Record is one assembled spectrum.
type Record struct {
	// ScanNumber is assigned in write order by the output router.
	ScanNumber int
	Frame      int64

	MSLevel       int
	Polarity      Polarity
	Centroided    bool
	RetentionTime float64 // minutes
	ScanType      ScanType

	MZ        []float64
	Intensity []float64
	Mobility  []float64

	TotalIonCurrent float64
	Stats           *PeakStats

	ParentFrame     int64
	CollisionEnergy float64
	NoPrecursor     bool
	Precursor       *Precursor

	Coord string
	Pixel *Pixel
}

var (
	ErrIncompletePrecursor = errors.New("ms2 record needs either a precursor block or the no-precursor flag")
	ErrArrayLength         = errors.New("array length mismatch")
)

// Validate checks the structural invariants of the record.
func (r *Record) Validate() error {
	if r == nil {
		return errors.New("nil record")
	}
	switch r.MSLevel {
	case 1:
		if r.Precursor != nil || r.NoPrecursor {
			return fmt.Errorf("frame %d: ms1 record must not carry precursor data", r.Frame)
		}
	case 2:
		if r.NoPrecursor == (r.Precursor != nil) {
			return fmt.Errorf("frame %d: %w", r.Frame, ErrIncompletePrecursor)
		}
	default:
		return fmt.Errorf("frame %d: unsupported ms level %d", r.Frame, r.MSLevel)
	}
	if len(r.MZ) != len(r.Intensity) {
		return fmt.Errorf("frame %d: %w: %d m/z vs %d intensity", r.Frame, ErrArrayLength, len(r.MZ), len(r.Intensity))
	}
	if r.Mobility != nil && len(r.Mobility) != len(r.MZ) {
		return fmt.Errorf("frame %d: %w: %d m/z vs %d mobility", r.Frame, ErrArrayLength, len(r.MZ), len(r.Mobility))
	}
	return nil
}

// WritesAsMS1 reports whether the record is written without a precursor block.
func (r *Record) WritesAsMS1() bool {
	return r.MSLevel == 1 || r.NoPrecursor
}

// Chunk holds the records assembled from one frame range.
type Chunk struct {
	Parents  []*Record
	Products []*Record
}

// Len returns the number of records in the chunk.
func (c Chunk) Len() int {
	return len(c.Parents) + len(c.Products)
}

// Entry pairs a record with the parent it links to, if any.
type Entry struct {
	Record *Record
	Parent *Record
}

// Ordered returns the write order for the chunk: every parent followed by its
// linked products, and products without a parent in the chunk placed by frame.
func (c Chunk) Ordered() []Entry {
	parents := make(map[int64]*Record, len(c.Parents))
	for _, p := range c.Parents {
		parents[p.Frame] = p
	}
	children := make(map[int64][]*Record)
	var loose []*Record
	for _, p := range c.Products {
		if parent, ok := parents[p.ParentFrame]; ok && p.ParentFrame != 0 && !p.NoPrecursor {
			children[parent.Frame] = append(children[parent.Frame], p)
			continue
		}
		loose = append(loose, p)
	}
	sort.SliceStable(loose, func(i, j int) bool { return loose[i].Frame < loose[j].Frame })

	out := make([]Entry, 0, c.Len())
	li := 0
	for _, parent := range c.Parents {
		for li < len(loose) && loose[li].Frame < parent.Frame {
			out = append(out, Entry{Record: loose[li]})
			li++
		}
		out = append(out, Entry{Record: parent})
		for _, child := range children[parent.Frame] {
			out = append(out, Entry{Record: child, Parent: parent})
		}
	}
	for ; li < len(loose); li++ {
		out = append(out, Entry{Record: loose[li]})
	}
	return out
}
