package convert

import (
	"fmt"
	"strconv"

	"timsconvert/internal/mzml"
	"timsconvert/internal/spectrum"
)

// ScanCounter hands out scan numbers in write order. One counter serves one
// output file.
type ScanCounter struct {
	n int
}

// Next advances the counter and returns the new scan number, starting at 1.
func (c *ScanCounter) Next() int {
	c.n++
	return c.n
}

// Count returns the number of scan numbers handed out.
func (c *ScanCounter) Count() int { return c.n }

// SpectrumSink receives rendered spectra. *mzml.Writer satisfies it.
type SpectrumSink interface {
	WriteSpectrum(mzml.Spectrum) error
}

// WriteOptions carries per-record context that is not part of the record.
type WriteOptions struct {
	// Parent is the already written MS1 record a product links to.
	Parent *spectrum.Record
	// Title is the spectrum title written for MALDI spots.
	Title string
}

// RecordWriter renders records as mzML spectrum elements.
type RecordWriter struct {
	// MALDI adds the spot identifier and spectrum title params.
	MALDI bool
}

// ScanID formats the native id of a scan number.
func ScanID(n int) string {
	return "scan=" + strconv.Itoa(n)
}

// Write validates rec, assigns it the next scan number and writes it to sink.
// The counter only advances when the sink accepts the spectrum.
func (w RecordWriter) Write(sink SpectrumSink, counter *ScanCounter, rec *spectrum.Record, opts WriteOptions) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	scan := counter.Count() + 1
	if err := sink.WriteSpectrum(w.Spectrum(rec, scan, opts)); err != nil {
		return err
	}
	rec.ScanNumber = counter.Next()
	return nil
}

// Spectrum renders rec as scan number scan.
func (w RecordWriter) Spectrum(rec *spectrum.Record, scan int, opts WriteOptions) mzml.Spectrum {
	params := []mzml.Param{
		mzml.Term(string(rec.ScanType)),
		mzml.Int("ms level", rec.MSLevel),
		mzml.Float("total ion current", rec.TotalIonCurrent),
	}

	out := mzml.Spectrum{
		ID:            ScanID(scan),
		Polarity:      rec.Polarity,
		Centroided:    rec.Centroided,
		ScanStartTime: rec.RetentionTime,
		Arrays: []mzml.Array{
			{Name: "m/z array", Values: rec.MZ},
			{Name: "intensity array", Values: rec.Intensity},
		},
	}
	if rec.Mobility != nil {
		out.Arrays = append(out.Arrays, mzml.Array{Name: "mean inverse reduced ion mobility array", Values: rec.Mobility})
	}

	if rec.WritesAsMS1() {
		params = appendStats(params, rec.Stats)
		if w.MALDI && rec.Coord != "" {
			params = append(params, mzml.Text("maldi spot identifier", rec.Coord))
			params = appendTitle(params, opts.Title)
		}
		if rec.NoPrecursor {
			params = append(params, mzml.Float("collision energy", rec.CollisionEnergy))
		}
		out.Params = params
		return out
	}

	if w.MALDI {
		params = appendTitle(params, opts.Title)
	}
	out.Params = appendStats(params, rec.Stats)
	out.Precursor = precursorBlock(rec, opts.Parent)
	return out
}

func appendStats(params []mzml.Param, stats *spectrum.PeakStats) []mzml.Param {
	if stats == nil {
		return params
	}
	return append(params,
		mzml.Float("base peak m/z", stats.BasePeakMZ),
		mzml.Float("base peak intensity", stats.BasePeakIntensity),
		mzml.Float("highest observed m/z", stats.HighMZ),
		mzml.Float("lowest observed m/z", stats.LowMZ),
	)
}

func appendTitle(params []mzml.Param, title string) []mzml.Param {
	if title == "" {
		return params
	}
	return append(params, mzml.Text("spectrum title", title))
}

func precursorBlock(rec *spectrum.Record, parent *spectrum.Record) *mzml.Precursor {
	p := rec.Precursor
	block := &mzml.Precursor{
		IsolationTarget: p.TargetMZ,
		IsolationUpper:  p.IsolationUpperOffset,
		IsolationLower:  p.IsolationLowerOffset,
		SelectedIonMZ:   p.SelectedIonMZ,
		Intensity:       p.SelectedIonIntensity,
		Activation:      []mzml.Param{mzml.Float("collision energy", rec.CollisionEnergy)},
	}
	if charge, ok := p.Charge(); ok {
		block.Charge = charge
	}
	if p.SelectedIonMobility != nil {
		block.IonParams = append(block.IonParams, mzml.Float("inverse reduced ion mobility", *p.SelectedIonMobility))
	}
	if p.SelectedIonCCS != nil {
		block.IonParams = append(block.IonParams, mzml.Float("collisional cross sectional area", *p.SelectedIonCCS))
	}
	if parent != nil && parent.ScanNumber > 0 {
		block.SpectrumRef = ScanID(parent.ScanNumber)
	}
	return block
}

func describe(rec *spectrum.Record) string {
	return fmt.Sprintf("frame %d ms%d", rec.Frame, rec.MSLevel)
}
