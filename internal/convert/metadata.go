package convert

import (
	"path/filepath"
	"slices"

	"timsconvert/internal/acquisition"
	"timsconvert/internal/mzml"
	"timsconvert/internal/spectrum"
)

// SoftwareID names this converter in software lists.
const SoftwareID = "timsconvert"

// Version is stamped into the software list; the CLI overrides it at link time.
var Version = "dev"

// Bruker acquisition programs that are recorded as micrOTOFcontrol.
var micrOTOFcontrolNames = []string{"Bruker otofControl", "timsTOF"}

// instrumentSources maps InstrumentSourceType codes to source terms.
var instrumentSources = map[int]string{
	1:  "electrospray ionization",
	2:  "atmospheric pressure chemical ionization",
	3:  "nanoelectrospray",
	4:  "nanoelectrospray",
	5:  "atmospheric pressure photoionization",
	9:  "nanoelectrospray",
	11: "nanoelectrospray",
}

// MetadataOptions selects the variable parts of the run header.
type MetadataOptions struct {
	Input     string
	Mode      spectrum.Mode
	MS2Only   bool
	Barebones bool
}

// BuildRunMetadata derives the file-level header of an mzML output from the
// acquisition's tabular metadata.
func BuildRunMetadata(schema acquisition.Schema, opts MetadataOptions) mzml.Metadata {
	md := mzml.Metadata{
		Analyzers:          []string{"quadrupole", "time-of-flight"},
		Detector:           "electron multiplier",
		ProcessingSoftware: SoftwareID,
		Barebones:          opts.Barebones,
	}

	for _, level := range schema.ClassifyMSLevels() {
		switch {
		case level == 1 && !opts.MS2Only:
			md.FileContent = append(md.FileContent, string(spectrum.ScanTypeMS1))
		case level >= 2 && !slices.Contains(md.FileContent, string(spectrum.ScanTypeMSn)):
			md.FileContent = append(md.FileContent, string(spectrum.ScanTypeMSn))
		}
	}
	if opts.Mode.Centroided() {
		md.FileContent = append(md.FileContent, "centroid spectrum")
	} else {
		md.FileContent = append(md.FileContent, "profile spectrum")
	}

	input := filepath.Clean(opts.Input)
	location := filepath.Dir(input)
	if abs, err := filepath.Abs(location); err == nil {
		location = abs
	}
	md.SourceFile = mzml.SourceFile{
		ID:       acquisition.BaseName(input),
		Name:     filepath.Base(input),
		Location: location,
	}

	meta := schema.Metadata()
	if name, ok := meta.Get(acquisition.MetaAcquisitionSoftware); ok && name != "" {
		version, _ := meta.Get(acquisition.MetaAcquisitionSoftwareVersion)
		sw := mzml.Software{ID: name, Version: version}
		if slices.Contains(micrOTOFcontrolNames, name) {
			sw.Params = []string{"micrOTOFcontrol"}
		}
		md.Software = append(md.Software, sw)
	}
	md.Software = append(md.Software, mzml.Software{ID: SoftwareID, Version: Version})

	if schema.Application().IsMALDI() {
		md.Source = "matrix-assisted laser desorption ionization"
	} else if code, ok := meta.Int(acquisition.MetaInstrumentSourceType); ok {
		md.Source = instrumentSources[code]
	}
	return md
}
