package spectrum

import (
	"fmt"
	"strings"
)

// Mode selects how spectra are exported.
type Mode int

const (
	ModeCentroid Mode = iota
	ModeProfile
	ModeRaw
)

// ParseMode converts a CLI or config value into a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "centroid", "":
		return ModeCentroid, nil
	case "profile":
		return ModeProfile, nil
	case "raw":
		return ModeRaw, nil
	default:
		return ModeCentroid, fmt.Errorf("mode: unsupported value %q (want profile, centroid or raw)", value)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeProfile:
		return "profile"
	case ModeRaw:
		return "raw"
	default:
		return "centroid"
	}
}

// Centroided reports whether records exported in this mode are centroided.
// Raw export is point data and is flagged centroided as well.
func (m Mode) Centroided() bool {
	return m != ModeProfile
}

// Encoding is the fixed floating point width used for binary arrays.
type Encoding int

const (
	Encoding64 Encoding = 64
	Encoding32 Encoding = 32
)

// ParseEncoding accepts 32 or 64.
func ParseEncoding(bits int) (Encoding, error) {
	switch bits {
	case 64, 0:
		return Encoding64, nil
	case 32:
		return Encoding32, nil
	default:
		return Encoding64, fmt.Errorf("encoding: unsupported width %d (want 32 or 64)", bits)
	}
}

// Round narrows v to the precision of the encoding.
func (e Encoding) Round(v float64) float64 {
	if e == Encoding32 {
		return float64(float32(v))
	}
	return v
}

// Compression selects the binary array compression.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZlib
)

// ParseCompression accepts "none" or "zlib".
func ParseCompression(value string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "":
		return CompressionNone, nil
	case "zlib":
		return CompressionZlib, nil
	default:
		return CompressionNone, fmt.Errorf("compression: unsupported value %q (want none or zlib)", value)
	}
}

func (c Compression) String() string {
	if c == CompressionZlib {
		return "zlib"
	}
	return "none"
}

// Topology decides how MALDI dried-droplet spectra map onto output files.
type Topology int

const (
	TopologyCombined Topology = iota
	TopologyIndividual
	TopologySample
)

// ParseTopology accepts "combined", "individual" or "sample".
func ParseTopology(value string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "combined", "":
		return TopologyCombined, nil
	case "individual":
		return TopologyIndividual, nil
	case "sample":
		return TopologySample, nil
	default:
		return TopologyCombined, fmt.Errorf("maldi output file: unsupported value %q (want combined, individual or sample)", value)
	}
}

func (t Topology) String() string {
	switch t {
	case TopologyIndividual:
		return "individual"
	case TopologySample:
		return "sample"
	default:
		return "combined"
	}
}

// RequiresPlateMap reports whether the topology groups spectra by plate map label.
func (t Topology) RequiresPlateMap() bool {
	return t == TopologyIndividual || t == TopologySample
}

// ImzMLMode is the imzML storage layout.
type ImzMLMode int

const (
	ImzMLProcessed ImzMLMode = iota
	ImzMLContinuous
)

// ParseImzMLMode accepts "processed" or "continuous".
func ParseImzMLMode(value string) (ImzMLMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "processed", "":
		return ImzMLProcessed, nil
	case "continuous":
		return ImzMLContinuous, nil
	default:
		return ImzMLProcessed, fmt.Errorf("imzml mode: unsupported value %q (want processed or continuous)", value)
	}
}

func (m ImzMLMode) String() string {
	if m == ImzMLContinuous {
		return "continuous"
	}
	return "processed"
}
