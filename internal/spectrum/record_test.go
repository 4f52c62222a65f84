package spectrum

import (
	"errors"
	"math"
	"testing"
)

func TestComputeStats(t *testing.T) {
	t.Parallel()
	tic, stats := ComputeStats([]float64{300, 100, 200}, []float64{5, 20, 1})
	if tic != 26 {
		t.Fatalf("tic = %v, want 26", tic)
	}
	if stats == nil {
		t.Fatal("expected stats")
	}
	if stats.BasePeakMZ != 100 || stats.BasePeakIntensity != 20 {
		t.Fatalf("unexpected base peak: %+v", stats)
	}
	if stats.LowMZ != 100 || stats.HighMZ != 300 {
		t.Fatalf("unexpected extrema: %+v", stats)
	}

	if tic, stats := ComputeStats(nil, nil); tic != 0 || stats != nil {
		t.Fatalf("empty arrays: tic=%v stats=%+v", tic, stats)
	}
}

func TestPrecursorCharge(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		charge float64
		want   int
		ok     bool
	}{
		{"unset", 0, 0, false},
		{"nan", math.NaN(), 0, false},
		{"two", 2, 2, true},
		{"three float", 3.0, 3, true},
	}
	for _, tc := range cases {
		p := &Precursor{ChargeState: tc.charge}
		got, ok := p.Charge()
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s: Charge() = %d,%v want %d,%v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
	var nilPrecursor *Precursor
	if _, ok := nilPrecursor.Charge(); ok {
		t.Fatal("nil precursor must not report a charge")
	}
}

func TestRecordValidatePrecursorCompleteness(t *testing.T) {
	t.Parallel()
	ms2 := &Record{Frame: 7, MSLevel: 2}
	if err := ms2.Validate(); !errors.Is(err, ErrIncompletePrecursor) {
		t.Fatalf("expected ErrIncompletePrecursor, got %v", err)
	}

	ms2.NoPrecursor = true
	if err := ms2.Validate(); err != nil {
		t.Fatalf("no-precursor record should validate: %v", err)
	}

	ms2.Precursor = &Precursor{SelectedIonMZ: 500}
	if err := ms2.Validate(); !errors.Is(err, ErrIncompletePrecursor) {
		t.Fatalf("record with both flag and block should fail, got %v", err)
	}

	ms2.NoPrecursor = false
	if err := ms2.Validate(); err != nil {
		t.Fatalf("precursor record should validate: %v", err)
	}
}

func TestRecordValidateArrays(t *testing.T) {
	t.Parallel()
	rec := &Record{MSLevel: 1, MZ: []float64{1, 2}, Intensity: []float64{1}}
	if err := rec.Validate(); !errors.Is(err, ErrArrayLength) {
		t.Fatalf("expected ErrArrayLength, got %v", err)
	}
	rec.Intensity = []float64{1, 2}
	rec.Mobility = []float64{0.9}
	if err := rec.Validate(); !errors.Is(err, ErrArrayLength) {
		t.Fatalf("expected mobility mismatch, got %v", err)
	}
	rec.Mobility = []float64{0.9, 1.0}
	if err := rec.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChunkOrderedInterleavesProducts(t *testing.T) {
	t.Parallel()
	p1 := &Record{Frame: 1, MSLevel: 1}
	p5 := &Record{Frame: 5, MSLevel: 1}
	c2 := &Record{Frame: 2, MSLevel: 2, ParentFrame: 1, Precursor: &Precursor{}}
	c3 := &Record{Frame: 3, MSLevel: 2, ParentFrame: 1, Precursor: &Precursor{}}
	loose := &Record{Frame: 4, MSLevel: 2, NoPrecursor: true}
	c6 := &Record{Frame: 6, MSLevel: 2, ParentFrame: 5, Precursor: &Precursor{}}

	chunk := Chunk{Parents: []*Record{p1, p5}, Products: []*Record{c2, c6, loose, c3}}
	got := chunk.Ordered()
	want := []*Record{p1, c2, c3, loose, p5, c6}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Record != want[i] {
			t.Fatalf("entry %d: got frame %d want frame %d", i, got[i].Record.Frame, want[i].Frame)
		}
	}
	if got[1].Parent != p1 || got[5].Parent != p5 {
		t.Fatal("linked products must carry their parent")
	}
	if got[3].Parent != nil {
		t.Fatal("no-precursor product must not carry a parent")
	}
}

func TestChunkOrderedProductsOnly(t *testing.T) {
	t.Parallel()
	a := &Record{Frame: 9, MSLevel: 2, ParentFrame: 8, Precursor: &Precursor{}}
	b := &Record{Frame: 3, MSLevel: 2, ParentFrame: 2, Precursor: &Precursor{}}
	got := Chunk{Products: []*Record{a, b}}.Ordered()
	if len(got) != 2 || got[0].Record != b || got[1].Record != a {
		t.Fatalf("products without parents should be frame ordered")
	}
}

func TestParseEnums(t *testing.T) {
	t.Parallel()
	if m, err := ParseMode("Profile"); err != nil || m != ModeProfile || m.Centroided() {
		t.Fatalf("ParseMode(Profile) = %v, %v", m, err)
	}
	if m, err := ParseMode("raw"); err != nil || !m.Centroided() {
		t.Fatalf("raw must be centroided: %v %v", m, err)
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if _, err := ParseEncoding(16); err == nil {
		t.Fatal("expected error for 16-bit encoding")
	}
	if enc, _ := ParseEncoding(32); enc.Round(0.1) != float64(float32(0.1)) {
		t.Fatal("32-bit rounding mismatch")
	}
	if top, err := ParseTopology("sample"); err != nil || !top.RequiresPlateMap() {
		t.Fatalf("sample topology: %v %v", top, err)
	}
	if top, _ := ParseTopology("combined"); top.RequiresPlateMap() {
		t.Fatal("combined must not require a plate map")
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Fatal("expected error for gzip")
	}
}
