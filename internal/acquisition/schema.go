package acquisition

import (
	"context"
	"strconv"
	"strings"

	"timsconvert/internal/spectrum"
)

// Kind identifies the tabular schema of an acquisition.
type Kind int

const (
	KindTDF Kind = iota + 1
	KindTSF
	KindBAF
)

func (k Kind) String() string {
	switch k {
	case KindTDF:
		return "TDF"
	case KindTSF:
		return "TSF"
	case KindBAF:
		return "BAF"
	default:
		return "unknown"
	}
}

// Application is the acquisition type, which selects the output path.
type Application int

const (
	ApplicationLCMS Application = iota
	ApplicationMALDIDriedDroplet
	ApplicationMALDIImaging
)

func (a Application) String() string {
	switch a {
	case ApplicationMALDIDriedDroplet:
		return "maldi-dried-droplet"
	case ApplicationMALDIImaging:
		return "maldi-imaging"
	default:
		return "lc-ms"
	}
}

// IsMALDI reports whether spectra carry spot or pixel coordinates.
func (a Application) IsMALDI() bool {
	return a != ApplicationLCMS
}

// CountKey selects a tabular row count.
type CountKey int

const (
	CountMS1 CountKey = iota
	CountMS2
	CountFrames
)

// Frame is one acquisition unit. For BAF data a frame is one spectrum row.
type Frame struct {
	ID       int64
	Time     float64 // seconds
	Polarity spectrum.Polarity
	MSLevel  int
	MsMsType int
	Coord    string
	Pixel    *spectrum.Pixel
}

// Product is one fragmentation event. PASEF precursors span several frames
// and are decoded by precursor id; every other product is decoded from Frame.
type Product struct {
	Key           int64
	Frame         int64
	Parent        int64
	FromPrecursor bool

	Time     float64
	Polarity spectrum.Polarity

	HasPrecursor    bool
	SelectedIonMZ   float64
	TargetMZ        float64
	IsolationWidth  float64
	Charge          float64 // NaN when unknown
	Intensity       *float64
	CollisionEnergy float64

	Coord string
	Pixel *spectrum.Pixel
}

// PeakRequest addresses one decoded spectrum. Precursor is zero for frame spectra.
type PeakRequest struct {
	Frame     int64
	Precursor int64
	Mode      spectrum.Mode
}

// Schema is the capability set every acquisition adapter exposes.
type Schema interface {
	Kind() Kind
	Path() string
	Metadata() Metadata
	Application() Application

	// ClassifyMSLevels returns the distinct MS levels present, ascending.
	ClassifyMSLevels() []int
	RowCountFor(key CountKey) int

	// ParentFrameIDs lists MS1 frames in ascending order.
	ParentFrameIDs() []int64
	// FrameIDs lists every frame in ascending order.
	FrameIDs() []int64
	LastFrame() int64

	SupportsRawMode() bool
	SupportsMobility() bool

	Frames(rng spectrum.FrameRange) []Frame
	Products(rng spectrum.FrameRange) []Product

	Peaks(ctx context.Context, req PeakRequest) (spectrum.Peaks, error)
	PrecursorMobility(ctx context.Context, precursor int64) (float64, bool, error)

	Close() error
}

// Metadata is the acquisition-level key/value table (GlobalMetadata or Properties).
type Metadata map[string]string

// Well-known metadata keys.
const (
	MetaAcquisitionSoftware        = "AcquisitionSoftware"
	MetaAcquisitionSoftwareVersion = "AcquisitionSoftwareVersion"
	MetaInstrumentSourceType       = "InstrumentSourceType"
	MetaMaldiApplicationType       = "MaldiApplicationType"
	MetaSchemaType                 = "SchemaType"
	MetaInstrumentName             = "InstrumentName"
	MetaAcquisitionDateTime        = "AcquisitionDateTime"
)

// Get returns the trimmed value for key.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Int returns the integer value for key.
func (m Metadata) Int(key string) (int, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// applicationFor derives the acquisition type from the MALDI metadata marker.
func applicationFor(meta Metadata) Application {
	value, ok := meta.Get(MetaMaldiApplicationType)
	if !ok {
		return ApplicationLCMS
	}
	if strings.EqualFold(value, "Imaging") {
		return ApplicationMALDIImaging
	}
	return ApplicationMALDIDriedDroplet
}
