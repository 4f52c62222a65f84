package imzml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/uuid"

	"timsconvert/internal/mzml"
	"timsconvert/internal/spectrum"
)

type parsedImzML struct {
	FileContent struct {
		CvPar []mzml.CVParam `xml:"cvParam"`
	} `xml:"fileDescription>fileContent"`
	Spectra []struct {
		Scan struct {
			CvPar []mzml.CVParam `xml:"cvParam"`
		} `xml:"scanList>scan"`
		Arrays []struct {
			CvPar []mzml.CVParam `xml:"cvParam"`
		} `xml:"binaryDataArrayList>binaryDataArray"`
	} `xml:"run>spectrumList>spectrum"`
}

func paramValue(params []mzml.CVParam, name string) (string, bool) {
	for _, p := range params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func readArray(t *testing.T, ibd []byte, params []mzml.CVParam, opts Options) []float64 {
	t.Helper()
	off, _ := paramValue(params, "external offset")
	enc, _ := paramValue(params, "external encoded length")
	o, err := strconv.Atoi(off)
	if err != nil {
		t.Fatalf("offset %q: %v", off, err)
	}
	n, err := strconv.Atoi(enc)
	if err != nil {
		t.Fatalf("encoded length %q: %v", enc, err)
	}
	values, err := mzml.Unpack(ibd[o:o+n], opts.Encoding, opts.Compression)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	return values
}

func writePixels(t *testing.T, opts Options) (parsedImzML, []byte, *Writer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.imzML")
	w, err := Create(path, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	mz := []float64{100, 200, 300}
	if err := w.AddSpectrum(mz, []float64{1, 2, 3}, []float64{0.8, 0.9, 1.0}, spectrum.Pixel{X: 1, Y: 1}); err != nil {
		t.Fatalf("AddSpectrum: %v", err)
	}
	if err := w.AddSpectrum(mz, []float64{4, 5, 6}, []float64{0.7, 0.8, 0.9}, spectrum.Pixel{X: 2, Y: 3}); err != nil {
		t.Fatalf("AddSpectrum: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read imzML: %v", err)
	}
	var doc parsedImzML
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse imzML: %v", err)
	}
	ibd, err := os.ReadFile(IBDPath(path))
	if err != nil {
		t.Fatalf("read ibd: %v", err)
	}
	return doc, ibd, w
}

func TestProcessedModeWritesEveryArray(t *testing.T) {
	t.Parallel()
	opts := Options{Mode: spectrum.ImzMLProcessed, Encoding: spectrum.Encoding32, Compression: spectrum.CompressionZlib, Centroided: true, IncludeMobility: true}
	doc, ibd, w := writePixels(t, opts)

	id := w.UUID()
	if !bytes.Equal(ibd[:16], id[:]) {
		t.Fatal("ibd must start with the writer uuid")
	}
	value, ok := paramValue(doc.FileContent.CvPar, "universally unique identifier")
	if !ok {
		t.Fatal("missing uuid term")
	}
	parsed, err := uuid.Parse(value[1 : len(value)-1])
	if err != nil || parsed != id {
		t.Fatalf("header uuid %q does not match %s", value, id)
	}
	if _, ok := paramValue(doc.FileContent.CvPar, "processed"); !ok {
		t.Fatal("missing processed term")
	}

	if len(doc.Spectra) != 2 {
		t.Fatalf("got %d spectra, want 2", len(doc.Spectra))
	}
	second := doc.Spectra[1]
	if x, _ := paramValue(second.Scan.CvPar, "position x"); x != "2" {
		t.Fatalf("position x = %q", x)
	}
	if y, _ := paramValue(second.Scan.CvPar, "position y"); y != "3" {
		t.Fatalf("position y = %q", y)
	}
	if len(second.Arrays) != 3 {
		t.Fatalf("expected m/z, intensity and mobility arrays, got %d", len(second.Arrays))
	}
	intensity := readArray(t, ibd, second.Arrays[1].CvPar, opts)
	if len(intensity) != 3 || intensity[2] != 6 {
		t.Fatalf("intensity = %v", intensity)
	}
	firstMZ, _ := paramValue(doc.Spectra[0].Arrays[0].CvPar, "external offset")
	secondMZ, _ := paramValue(second.Arrays[0].CvPar, "external offset")
	if firstMZ == secondMZ {
		t.Fatal("processed mode must write a separate m/z array per pixel")
	}
}

func TestContinuousModeSharesMZ(t *testing.T) {
	t.Parallel()
	opts := Options{Mode: spectrum.ImzMLContinuous}
	doc, ibd, _ := writePixels(t, opts)
	firstMZ, _ := paramValue(doc.Spectra[0].Arrays[0].CvPar, "external offset")
	secondMZ, _ := paramValue(doc.Spectra[1].Arrays[0].CvPar, "external offset")
	if firstMZ != secondMZ || firstMZ != "16" {
		t.Fatalf("continuous m/z offsets %s and %s, want both 16", firstMZ, secondMZ)
	}
	if len(doc.Spectra[0].Arrays) != 2 {
		t.Fatal("mobility array must be omitted unless requested")
	}
	mz := readArray(t, ibd, doc.Spectra[1].Arrays[0].CvPar, opts)
	if len(mz) != 3 || mz[0] != 100 {
		t.Fatalf("shared m/z = %v", mz)
	}
}

func TestContinuousModeRejectsDifferentAxis(t *testing.T) {
	t.Parallel()
	w, err := Create(filepath.Join(t.TempDir(), "image.imzML"), Options{Mode: spectrum.ImzMLContinuous})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()
	if err := w.AddSpectrum([]float64{1, 2}, []float64{1, 1}, nil, spectrum.Pixel{X: 1, Y: 1}); err != nil {
		t.Fatalf("AddSpectrum: %v", err)
	}
	err = w.AddSpectrum([]float64{1}, []float64{1}, nil, spectrum.Pixel{X: 2, Y: 1})
	if !errors.Is(err, ErrContinuousMismatch) {
		t.Fatalf("expected ErrContinuousMismatch, got %v", err)
	}
	if w.Written() != 1 {
		t.Fatalf("Written() = %d, want 1", w.Written())
	}
}

func TestAddSpectrumValidatesLengths(t *testing.T) {
	t.Parallel()
	w, err := Create(filepath.Join(t.TempDir(), "image.imzML"), Options{IncludeMobility: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()
	if err := w.AddSpectrum([]float64{1, 2}, []float64{1}, nil, spectrum.Pixel{}); !errors.Is(err, spectrum.ErrArrayLength) {
		t.Fatalf("expected ErrArrayLength, got %v", err)
	}
	if err := w.AddSpectrum([]float64{1}, []float64{1}, nil, spectrum.Pixel{}); !errors.Is(err, spectrum.ErrArrayLength) {
		t.Fatalf("expected mobility length error, got %v", err)
	}
}

func TestPairKeepsTemporaryNamesUntilClose(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "image.imzML")
	w, err := Create(path, Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.AddSpectrum([]float64{100}, []float64{1}, nil, spectrum.Pixel{X: 1, Y: 1}); err != nil {
		t.Fatalf("AddSpectrum: %v", err)
	}
	for _, final := range []string{path, IBDPath(path)} {
		if _, err := os.Stat(final); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s exists before Close: %v", final, err)
		}
	}
	if _, err := os.Stat(tempPath(IBDPath(path))); err != nil {
		t.Fatalf("temporary ibd missing: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, final := range []string{path, IBDPath(path)} {
		if _, err := os.Stat(final); err != nil {
			t.Fatalf("%s missing after Close: %v", final, err)
		}
	}
	for _, temp := range []string{tempPath(path), tempPath(IBDPath(path))} {
		if _, err := os.Stat(temp); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s left behind: %v", temp, err)
		}
	}
}

func TestDiscardRemovesEveryFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := Create(filepath.Join(dir, "image.imzML"), Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.AddSpectrum([]float64{100}, []float64{1}, nil, spectrum.Pixel{X: 1, Y: 1}); err != nil {
		t.Fatalf("AddSpectrum: %v", err)
	}
	if err := w.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close after Discard: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("files left after Discard: %v", entries)
	}
}

func TestIBDPath(t *testing.T) {
	t.Parallel()
	if got := IBDPath("/out/run.imzML"); got != "/out/run.ibd" {
		t.Fatalf("IBDPath = %q", got)
	}
}
