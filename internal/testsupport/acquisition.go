package testsupport

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// Peaks are the arrays stored for one decoded spectrum.
type Peaks struct {
	MZ        []float64
	Intensity []float64
	Mobility  []float64
}

// SimplePeaks returns n peaks starting at base m/z with unit spacing.
func SimplePeaks(base float64, n int) Peaks {
	p := Peaks{}
	for i := range n {
		p.MZ = append(p.MZ, base+float64(i))
		p.Intensity = append(p.Intensity, float64(100*(i+1)))
		p.Mobility = append(p.Mobility, 0.8+0.01*float64(i))
	}
	return p
}

// Frame is one row of a synthetic Frames table.
type Frame struct {
	ID       int64
	Time     float64
	MsMsType int
	Polarity string
	Peaks    Peaks

	// MALDI
	SpotName string
	X, Y     int

	// Frame-level MS/MS settings. Trigger mass zero means no precursor.
	Parent          int64
	TriggerMass     float64
	IsolationWidth  float64
	Charge          float64
	CollisionEnergy float64
}

// Precursor is one ddaPASEF precursor fragmented in Frame.
type Precursor struct {
	ID              int64
	Parent          int64
	Frame           int64
	MonoisotopicMZ  float64 // zero stores NULL
	LargestPeakMZ   float64
	Charge          float64 // zero stores NULL
	Intensity       float64
	IsolationMZ     float64
	IsolationWidth  float64
	CollisionEnergy float64
	OneOverK0       float64 // zero stores no mobility row
	Peaks           Peaks
}

// TimsAcquisition describes a synthetic analysis.tdf or analysis.tsf.
type TimsAcquisition struct {
	Metadata   map[string]string
	Frames     []Frame
	Precursors []Precursor
	Maldi      bool
}

var peakModes = []string{"centroid", "profile", "raw"}

// WriteTDF creates <dir>/<name>.d/analysis.tdf and returns the .d path.
func WriteTDF(t testing.TB, dir, name string, acq TimsAcquisition) string {
	t.Helper()
	return writeTims(t, dir, name, "analysis.tdf", acq)
}

// WriteTSF creates <dir>/<name>.d/analysis.tsf and returns the .d path.
func WriteTSF(t testing.TB, dir, name string, acq TimsAcquisition) string {
	t.Helper()
	return writeTims(t, dir, name, "analysis.tsf", acq)
}

func writeTims(t testing.TB, dir, name, file string, acq TimsAcquisition) string {
	t.Helper()
	dotD, db := createDB(t, dir, name, file)
	defer db.Close()

	mustExec(t, db,
		`CREATE TABLE GlobalMetadata (Key TEXT PRIMARY KEY, Value TEXT)`,
		`CREATE TABLE Frames (Id INTEGER PRIMARY KEY, Time REAL, Polarity TEXT, MsMsType INTEGER)`,
		`CREATE TABLE FrameMsMsInfo (Frame INTEGER PRIMARY KEY, Parent INTEGER, TriggerMass REAL, IsolationWidth REAL, PrecursorCharge REAL, CollisionEnergy REAL)`,
		`CREATE TABLE DecodedPeaks (Frame INTEGER, Mode TEXT, Mz BLOB, Intensity BLOB, Mobility BLOB)`,
	)
	for k, v := range acq.Metadata {
		mustExec1(t, db, `INSERT INTO GlobalMetadata (Key, Value) VALUES (?, ?)`, k, v)
	}
	if acq.Maldi {
		mustExec(t, db, `CREATE TABLE MaldiFrameInfo (Frame INTEGER PRIMARY KEY, SpotName TEXT, XIndexPos INTEGER, YIndexPos INTEGER)`)
	}
	for _, f := range acq.Frames {
		polarity := f.Polarity
		if polarity == "" {
			polarity = "+"
		}
		mustExec1(t, db, `INSERT INTO Frames (Id, Time, Polarity, MsMsType) VALUES (?, ?, ?, ?)`, f.ID, f.Time, polarity, f.MsMsType)
		if f.MsMsType != 0 && f.MsMsType != 8 {
			mustExec1(t, db,
				`INSERT INTO FrameMsMsInfo (Frame, Parent, TriggerMass, IsolationWidth, PrecursorCharge, CollisionEnergy) VALUES (?, ?, ?, ?, ?, ?)`,
				f.ID, nullInt(f.Parent), f.TriggerMass, f.IsolationWidth, nullFloat(f.Charge), f.CollisionEnergy)
		}
		if acq.Maldi {
			mustExec1(t, db, `INSERT INTO MaldiFrameInfo (Frame, SpotName, XIndexPos, YIndexPos) VALUES (?, ?, ?, ?)`,
				f.ID, f.SpotName, f.X, f.Y)
		}
		if len(f.Peaks.MZ) > 0 {
			for _, mode := range peakModes {
				mustExec1(t, db, `INSERT INTO DecodedPeaks (Frame, Mode, Mz, Intensity, Mobility) VALUES (?, ?, ?, ?, ?)`,
					f.ID, mode, encode(f.Peaks.MZ), encode(f.Peaks.Intensity), encodeOrNil(f.Peaks.Mobility))
			}
		}
	}

	if len(acq.Precursors) > 0 {
		mustExec(t, db,
			`CREATE TABLE Precursors (Id INTEGER PRIMARY KEY, LargestPeakMz REAL, AverageMz REAL, MonoisotopicMz REAL, Charge INTEGER, ScanNumber REAL, Intensity REAL, Parent INTEGER)`,
			`CREATE TABLE PasefFrameMsMsInfo (Frame INTEGER, ScanNumBegin INTEGER, ScanNumEnd INTEGER, IsolationMz REAL, IsolationWidth REAL, CollisionEnergy REAL, Precursor INTEGER)`,
			`CREATE TABLE DecodedPrecursorPeaks (Precursor INTEGER, Mode TEXT, Mz BLOB, Intensity BLOB)`,
			`CREATE TABLE DecodedPrecursorMobility (Precursor INTEGER PRIMARY KEY, OneOverK0 REAL)`,
		)
		for _, p := range acq.Precursors {
			mustExec1(t, db,
				`INSERT INTO Precursors (Id, LargestPeakMz, AverageMz, MonoisotopicMz, Charge, ScanNumber, Intensity, Parent) VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
				p.ID, p.LargestPeakMZ, p.LargestPeakMZ, nullFloat(p.MonoisotopicMZ), nullFloat(p.Charge), p.Intensity, p.Parent)
			mustExec1(t, db,
				`INSERT INTO PasefFrameMsMsInfo (Frame, ScanNumBegin, ScanNumEnd, IsolationMz, IsolationWidth, CollisionEnergy, Precursor) VALUES (?, 0, 100, ?, ?, ?, ?)`,
				p.Frame, p.IsolationMZ, p.IsolationWidth, p.CollisionEnergy, p.ID)
			if p.OneOverK0 != 0 {
				mustExec1(t, db, `INSERT INTO DecodedPrecursorMobility (Precursor, OneOverK0) VALUES (?, ?)`, p.ID, p.OneOverK0)
			}
			if len(p.Peaks.MZ) > 0 {
				for _, mode := range peakModes {
					mustExec1(t, db, `INSERT INTO DecodedPrecursorPeaks (Precursor, Mode, Mz, Intensity) VALUES (?, ?, ?, ?)`,
						p.ID, mode, encode(p.Peaks.MZ), encode(p.Peaks.Intensity))
				}
			}
		}
	}
	return dotD
}

// Spectrum is one row of a synthetic BAF2SQL Spectra table.
type Spectrum struct {
	ID              int64
	RT              float64
	MSLevel         int // 1 or 2
	Negative        bool
	Parent          int64
	PrecursorMass   float64
	IsolationWidth  float64
	Charge          float64
	CollisionEnergy float64
	// AcquisitionKey overrides the key derived from MSLevel and Negative.
	AcquisitionKey int
	Peaks          Peaks
}

// BAFAcquisition describes a synthetic BAF2SQL analysis.sqlite.
type BAFAcquisition struct {
	Properties map[string]string
	Spectra    []Spectrum
}

// WriteBAF creates <dir>/<name>.d/analysis.sqlite and returns the .d path.
func WriteBAF(t testing.TB, dir, name string, acq BAFAcquisition) string {
	t.Helper()
	dotD, db := createDB(t, dir, name, "analysis.sqlite")
	defer db.Close()

	mustExec(t, db,
		`CREATE TABLE Properties (Key TEXT PRIMARY KEY, Value TEXT)`,
		`CREATE TABLE AcquisitionKeys (Id INTEGER PRIMARY KEY, Polarity INTEGER, ScanMode INTEGER, AcquisitionMode INTEGER, MsLevel INTEGER)`,
		`CREATE TABLE Spectra (Id INTEGER PRIMARY KEY, Rt REAL, Segment INTEGER, AcquisitionKey INTEGER, Parent INTEGER)`,
		`CREATE TABLE Steps (TargetSpectrum INTEGER, Number INTEGER, IsolationType INTEGER, ReactionType INTEGER, MsLevel INTEGER, Mass REAL)`,
		`CREATE TABLE SupportedVariables (Variable INTEGER PRIMARY KEY, PermanentName TEXT)`,
		`CREATE TABLE Variables (Spectrum INTEGER, Variable INTEGER, Value REAL)`,
		`CREATE TABLE DecodedPeaks (Frame INTEGER, Mode TEXT, Mz BLOB, Intensity BLOB, Mobility BLOB)`,
		`INSERT INTO SupportedVariables (Variable, PermanentName) VALUES (1, 'Collision_Energy_Act'), (2, 'Quadrupole_IsolationResolution_Act'), (3, 'MSMS_PreCursorChargeState')`,
	)
	for k, v := range acq.Properties {
		mustExec1(t, db, `INSERT INTO Properties (Key, Value) VALUES (?, ?)`, k, v)
	}
	for level := 0; level < 2; level++ {
		for polarity := 0; polarity < 2; polarity++ {
			mustExec1(t, db, `INSERT INTO AcquisitionKeys (Id, Polarity, ScanMode, AcquisitionMode, MsLevel) VALUES (?, ?, 0, 0, ?)`,
				bafKey(level+1, polarity == 1), polarity, level)
		}
	}
	for _, s := range acq.Spectra {
		key := s.AcquisitionKey
		if key == 0 {
			key = bafKey(s.MSLevel, s.Negative)
		}
		mustExec1(t, db, `INSERT INTO Spectra (Id, Rt, Segment, AcquisitionKey, Parent) VALUES (?, ?, 1, ?, ?)`,
			s.ID, s.RT, key, nullInt(s.Parent))
		if s.MSLevel == 2 {
			mustExec1(t, db, `INSERT INTO Steps (TargetSpectrum, Number, IsolationType, ReactionType, MsLevel, Mass) VALUES (?, 0, 0, 0, 1, ?)`,
				s.ID, s.PrecursorMass)
			mustExec1(t, db, `INSERT INTO Variables (Spectrum, Variable, Value) VALUES (?, 1, ?), (?, 2, ?)`,
				s.ID, s.CollisionEnergy, s.ID, s.IsolationWidth)
			if s.Charge != 0 {
				mustExec1(t, db, `INSERT INTO Variables (Spectrum, Variable, Value) VALUES (?, 3, ?)`, s.ID, s.Charge)
			}
		}
		if len(s.Peaks.MZ) > 0 {
			for _, mode := range peakModes {
				mustExec1(t, db, `INSERT INTO DecodedPeaks (Frame, Mode, Mz, Intensity, Mobility) VALUES (?, ?, ?, ?, NULL)`,
					s.ID, mode, encode(s.Peaks.MZ), encode(s.Peaks.Intensity))
			}
		}
	}
	return dotD
}

// bafKey numbers positive keys 1 (MS1) and 2 (MS2) and negative keys 3 and 4.
func bafKey(level int, negative bool) int {
	if negative {
		return level + 2
	}
	return level
}

func createDB(t testing.TB, dir, name, file string) (string, *sql.DB) {
	t.Helper()
	dotD := filepath.Join(dir, name+".d")
	if err := os.MkdirAll(dotD, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dotD, err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dotD, file))
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	return dotD, db
}

func mustExec(t testing.TB, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func mustExec1(t testing.TB, db *sql.DB, stmt string, args ...any) {
	t.Helper()
	if _, err := db.Exec(stmt, args...); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0 && !math.IsNaN(v)}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func encode(values []float64) []byte {
	out := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

func encodeOrNil(values []float64) []byte {
	if len(values) == 0 {
		return nil
	}
	return encode(values)
}

// FrameRows builds n consecutive MS1 frames with ids starting at 1, each
// carrying peaks, one second apart.
func FrameRows(n int) []Frame {
	frames := make([]Frame, 0, n)
	for i := 1; i <= n; i++ {
		frames = append(frames, Frame{
			ID:    int64(i),
			Time:  float64(i),
			Peaks: SimplePeaks(100+float64(i), 3),
		})
	}
	return frames
}

// SpotName formats a plate position such as A1.
func SpotName(row rune, col int) string {
	return fmt.Sprintf("%c%d", row, col)
}
