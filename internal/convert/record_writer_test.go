package convert

import (
	"errors"
	"math"
	"slices"
	"testing"

	"timsconvert/internal/mzml"
	"timsconvert/internal/spectrum"
)

type captureSink struct {
	spectra []mzml.Spectrum
	err     error
}

func (c *captureSink) WriteSpectrum(s mzml.Spectrum) error {
	if c.err != nil {
		return c.err
	}
	c.spectra = append(c.spectra, s)
	return nil
}

func ms1Record(frame int64) *spectrum.Record {
	mz := []float64{100, 101}
	intensity := []float64{10, 30}
	tic, stats := spectrum.ComputeStats(mz, intensity)
	return &spectrum.Record{
		Frame: frame, MSLevel: 1, ScanType: spectrum.ScanTypeMS1, Centroided: true,
		MZ: mz, Intensity: intensity, TotalIonCurrent: tic, Stats: stats,
	}
}

func ms2Record(frame, parent int64, charge float64) *spectrum.Record {
	return &spectrum.Record{
		Frame: frame, MSLevel: 2, ScanType: spectrum.ScanTypeMSn, Centroided: true,
		MZ: []float64{50}, Intensity: []float64{5}, TotalIonCurrent: 5,
		ParentFrame: parent, CollisionEnergy: 30,
		Precursor: &spectrum.Precursor{SelectedIonMZ: 500.25, ChargeState: charge, TargetMZ: 500.3, IsolationUpperOffset: 1, IsolationLowerOffset: 1},
	}
}

func paramNames(s mzml.Spectrum) []string {
	names := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		names = append(names, p.Name)
	}
	return names
}

func TestRecordWriterNumbersScansInWriteOrder(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	var counter ScanCounter
	w := RecordWriter{}

	parent := ms1Record(1)
	records := []*spectrum.Record{parent, ms2Record(2, 1, 2), ms2Record(2, 1, 3), ms1Record(3)}
	for i, rec := range records {
		opts := WriteOptions{}
		if rec.MSLevel == 2 {
			opts.Parent = parent
		}
		if err := w.Write(sink, &counter, rec, opts); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if rec.ScanNumber != i+1 {
			t.Fatalf("record %d scan number = %d", i, rec.ScanNumber)
		}
	}
	if counter.Count() != 4 {
		t.Fatalf("count = %d, want 4", counter.Count())
	}
	var ids []string
	for _, s := range sink.spectra {
		ids = append(ids, s.ID)
	}
	if want := []string{"scan=1", "scan=2", "scan=3", "scan=4"}; !slices.Equal(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	if ref := sink.spectra[1].Precursor.SpectrumRef; ref != "scan=1" {
		t.Fatalf("spectrumRef = %q, want scan=1", ref)
	}
}

func TestRecordWriterMS1Params(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	var counter ScanCounter
	if err := (RecordWriter{}).Write(sink, &counter, ms1Record(1), WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	want := []string{"MS1 spectrum", "ms level", "total ion current", "base peak m/z", "base peak intensity", "highest observed m/z", "lowest observed m/z"}
	if got := paramNames(sink.spectra[0]); !slices.Equal(got, want) {
		t.Fatalf("params = %v, want %v", got, want)
	}
	if sink.spectra[0].Params[3].Value != "101" {
		t.Fatalf("base peak m/z = %q", sink.spectra[0].Params[3].Value)
	}
	if sink.spectra[0].Precursor != nil {
		t.Fatal("ms1 spectrum must not carry a precursor")
	}
}

func TestRecordWriterOmitsUnknownCharge(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		charge float64
		want   int
	}{
		{"known", 2, 2},
		{"zero", 0, 0},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		sink := &captureSink{}
		var counter ScanCounter
		if err := (RecordWriter{}).Write(sink, &counter, ms2Record(2, 0, tt.charge), WriteOptions{}); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		p := sink.spectra[0].Precursor
		if p == nil || p.Charge != tt.want {
			t.Fatalf("%s: precursor = %+v, want charge %d", tt.name, p, tt.want)
		}
		if p.SpectrumRef != "" {
			t.Fatalf("%s: unlinked product has spectrumRef %q", tt.name, p.SpectrumRef)
		}
	}
}

func TestRecordWriterPrecursorIonParams(t *testing.T) {
	t.Parallel()
	rec := ms2Record(2, 1, 2)
	k0, ccs := 1.05, 410.2
	rec.Precursor.SelectedIonMobility = &k0
	rec.Precursor.SelectedIonCCS = &ccs

	sink := &captureSink{}
	var counter ScanCounter
	if err := (RecordWriter{}).Write(sink, &counter, rec, WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	p := sink.spectra[0].Precursor
	if len(p.IonParams) != 2 || p.IonParams[0].Name != "inverse reduced ion mobility" || p.IonParams[1].Name != "collisional cross sectional area" {
		t.Fatalf("ion params = %+v", p.IonParams)
	}
	if len(p.Activation) != 1 || p.Activation[0].Value != "30" {
		t.Fatalf("activation = %+v", p.Activation)
	}
	if p.IsolationTarget != 500.3 || p.IsolationUpper != 1 || p.IsolationLower != 1 {
		t.Fatalf("isolation window = %+v", p)
	}
}

func TestRecordWriterNoPrecursorProduct(t *testing.T) {
	t.Parallel()
	rec := ms2Record(3, 0, 0)
	rec.Precursor = nil
	rec.NoPrecursor = true
	rec.CollisionEnergy = 20

	sink := &captureSink{}
	var counter ScanCounter
	if err := (RecordWriter{}).Write(sink, &counter, rec, WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	s := sink.spectra[0]
	if s.Precursor != nil {
		t.Fatal("no-precursor product must be written without a precursor block")
	}
	names := paramNames(s)
	if names[0] != "MSn spectrum" || names[len(names)-1] != "collision energy" {
		t.Fatalf("params = %v", names)
	}
}

func TestRecordWriterMaldiTitle(t *testing.T) {
	t.Parallel()
	rec := ms1Record(1)
	rec.Coord = "A1"
	sink := &captureSink{}
	var counter ScanCounter
	if err := (RecordWriter{MALDI: true}).Write(sink, &counter, rec, WriteOptions{Title: "ctrl"}); err != nil {
		t.Fatal(err)
	}
	params := sink.spectra[0].Params
	n := len(params)
	if params[n-2].Name != "maldi spot identifier" || params[n-2].Value != "A1" {
		t.Fatalf("spot param = %+v", params[n-2])
	}
	if params[n-1].Name != "spectrum title" || params[n-1].Value != "ctrl" {
		t.Fatalf("title param = %+v", params[n-1])
	}
}

func TestRecordWriterRejectsWithoutAdvancing(t *testing.T) {
	t.Parallel()
	var counter ScanCounter
	w := RecordWriter{}

	broken := ms2Record(2, 1, 2)
	broken.Precursor = nil
	if err := w.Write(&captureSink{}, &counter, broken, WriteOptions{}); !errors.Is(err, spectrum.ErrIncompletePrecursor) {
		t.Fatalf("expected ErrIncompletePrecursor, got %v", err)
	}

	failing := &captureSink{err: errors.New("disk full")}
	if err := w.Write(failing, &counter, ms1Record(1), WriteOptions{}); err == nil {
		t.Fatal("expected sink error")
	}
	if counter.Count() != 0 {
		t.Fatalf("counter advanced to %d after failures", counter.Count())
	}
}
