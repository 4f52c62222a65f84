package convert_test

import (
	"context"
	"slices"
	"testing"

	"timsconvert/internal/acquisition"
	"timsconvert/internal/convert"
	"timsconvert/internal/spectrum"
	"timsconvert/internal/testsupport"
)

func openSchema(t *testing.T, dotD string) acquisition.Schema {
	t.Helper()
	schema, err := acquisition.Open(context.Background(), dotD, acquisition.OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = schema.Close() })
	return schema
}

func TestBuildRunMetadataLCMS(t *testing.T) {
	t.Parallel()
	acq := testsupport.TimsAcquisition{
		Metadata: map[string]string{
			acquisition.MetaAcquisitionSoftware:        "timsTOF",
			acquisition.MetaAcquisitionSoftwareVersion: "5.1",
			acquisition.MetaInstrumentSourceType:       "1",
		},
		Frames: []testsupport.Frame{
			{ID: 1, Time: 1, Peaks: testsupport.SimplePeaks(100, 2)},
			{ID: 2, Time: 2, MsMsType: 2, Parent: 1, TriggerMass: 400, IsolationWidth: 2, CollisionEnergy: 25, Peaks: testsupport.SimplePeaks(80, 2)},
		},
	}
	dotD := testsupport.WriteTSF(t, t.TempDir(), "run", acq)
	md := convert.BuildRunMetadata(openSchema(t, dotD), convert.MetadataOptions{Input: dotD, Mode: spectrum.ModeCentroid})

	if want := []string{"MS1 spectrum", "MSn spectrum", "centroid spectrum"}; !slices.Equal(md.FileContent, want) {
		t.Fatalf("file content = %v, want %v", md.FileContent, want)
	}
	if md.SourceFile.ID != "run" || md.SourceFile.Name != "run.d" {
		t.Fatalf("source file = %+v", md.SourceFile)
	}
	if md.Source != "electrospray ionization" {
		t.Fatalf("source = %q", md.Source)
	}
	if len(md.Software) != 2 {
		t.Fatalf("software = %+v", md.Software)
	}
	if sw := md.Software[0]; sw.ID != "timsTOF" || sw.Version != "5.1" || !slices.Equal(sw.Params, []string{"micrOTOFcontrol"}) {
		t.Fatalf("acquisition software = %+v", sw)
	}
	if md.Software[1].ID != convert.SoftwareID || md.ProcessingSoftware != convert.SoftwareID {
		t.Fatalf("converter software = %+v / %q", md.Software[1], md.ProcessingSoftware)
	}
	if md.Barebones {
		t.Fatal("barebones not requested")
	}
}

func TestBuildRunMetadataMaldiProfileMS2Only(t *testing.T) {
	t.Parallel()
	acq := testsupport.TimsAcquisition{
		Metadata: map[string]string{acquisition.MetaMaldiApplicationType: "SingleSpectra", acquisition.MetaInstrumentSourceType: "1"},
		Maldi:    true,
		Frames:   []testsupport.Frame{{ID: 1, SpotName: "A1", Peaks: testsupport.SimplePeaks(100, 2)}},
	}
	dotD := testsupport.WriteTSF(t, t.TempDir(), "plate", acq)
	md := convert.BuildRunMetadata(openSchema(t, dotD), convert.MetadataOptions{
		Input: dotD, Mode: spectrum.ModeProfile, MS2Only: true, Barebones: true,
	})
	if md.Source != "matrix-assisted laser desorption ionization" {
		t.Fatalf("source = %q", md.Source)
	}
	if want := []string{"profile spectrum"}; !slices.Equal(md.FileContent, want) {
		t.Fatalf("file content = %v, want %v", md.FileContent, want)
	}
	if !md.Barebones {
		t.Fatal("expected barebones metadata")
	}
	if len(md.Software) != 1 || len(md.Software[0].Params) != 0 {
		t.Fatalf("software = %+v", md.Software)
	}
}
