package acquisition

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"timsconvert/internal/spectrum"
)

// bafSchema adapts the BAF2SQL cache (analysis.sqlite) of TOF acquisitions.
// Each spectrum row is treated as one frame.
type bafSchema struct {
	*catalog
	// keyRows counts Spectra rows per AcquisitionKey id.
	keyRows map[int64]int
}

func (s *bafSchema) Kind() Kind { return KindBAF }

func (s *bafSchema) SupportsRawMode() bool { return true }

func (s *bafSchema) SupportsMobility() bool { return false }

// RowCountFor counts the rows of AcquisitionKey 1 and 2 for the MS1 and MS2
// keys, whatever MS level those keys carry.
func (s *bafSchema) RowCountFor(key CountKey) int {
	switch key {
	case CountMS1:
		return s.keyRows[1]
	case CountMS2:
		return s.keyRows[2]
	default:
		return len(s.frames)
	}
}

// BAF2SQL variable names carrying MS/MS settings.
const (
	bafVarCollisionEnergy = "Collision_Energy_Act"
	bafVarIsolationWidth  = "Quadrupole_IsolationResolution_Act"
	bafVarChargeState     = "MSMS_PreCursorChargeState"
)

func loadBAF(ctx context.Context, path string, db *sql.DB) (*bafSchema, error) {
	meta, err := readKeyValue(ctx, db, "Properties")
	if err != nil {
		return nil, err
	}
	// MALDI export is only supported for TDF and TSF.
	delete(meta, MetaMaldiApplicationType)

	rows, err := db.QueryContext(ctx, `
        SELECT s.Id, s.Rt, s.Parent, s.AcquisitionKey, k.Polarity, k.MsLevel
        FROM Spectra s
        JOIN AcquisitionKeys k ON k.Id = s.AcquisitionKey
        ORDER BY s.Id`)
	if err != nil {
		return nil, fmt.Errorf("read Spectra: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	parents := map[int64]int64{}
	keyRows := map[int64]int{}
	for rows.Next() {
		var (
			f        Frame
			parent   sql.NullInt64
			key      int64
			polarity sql.NullInt64
			level    int
		)
		if err := rows.Scan(&f.ID, &f.Time, &parent, &key, &polarity, &level); err != nil {
			return nil, fmt.Errorf("scan Spectra: %w", err)
		}
		keyRows[key]++
		switch {
		case !polarity.Valid:
			f.Polarity = spectrum.PolarityUnknown
		case polarity.Int64 == 0:
			f.Polarity = spectrum.PolarityPositive
		default:
			f.Polarity = spectrum.PolarityNegative
		}
		// BAF MsLevel is zero-based.
		f.MSLevel = level + 1
		f.MsMsType = level
		if parent.Valid {
			parents[f.ID] = parent.Int64
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	steps, err := readBAFSteps(ctx, db)
	if err != nil {
		return nil, err
	}
	vars, err := readBAFVariables(ctx, db)
	if err != nil {
		return nil, err
	}

	var products []Product
	for _, f := range frames {
		if f.MSLevel != 2 {
			continue
		}
		v := vars[f.ID]
		p := Product{
			Key:             f.ID,
			Frame:           f.ID,
			Time:            f.Time,
			Polarity:        f.Polarity,
			Charge:          math.NaN(),
			CollisionEnergy: v[bafVarCollisionEnergy],
		}
		if mass, ok := steps[f.ID]; ok && mass > 0 {
			p.HasPrecursor = true
			p.Parent = parents[f.ID]
			p.SelectedIonMZ = mass
			p.TargetMZ = mass
			p.IsolationWidth = v[bafVarIsolationWidth]
			if charge, ok := v[bafVarChargeState]; ok {
				p.Charge = charge
			}
		}
		products = append(products, p)
	}
	return &bafSchema{catalog: newCatalog(path, db, meta, frames, products), keyRows: keyRows}, nil
}

func readBAFSteps(ctx context.Context, db *sql.DB) (map[int64]float64, error) {
	out := map[int64]float64{}
	ok, err := tableExists(ctx, db, "Steps")
	if err != nil || !ok {
		return out, err
	}
	rows, err := db.QueryContext(ctx, `SELECT TargetSpectrum, Mass FROM Steps`)
	if err != nil {
		return nil, fmt.Errorf("read Steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			target int64
			mass   sql.NullFloat64
		)
		if err := rows.Scan(&target, &mass); err != nil {
			return nil, fmt.Errorf("scan Steps: %w", err)
		}
		if mass.Valid {
			out[target] = mass.Float64
		}
	}
	return out, rows.Err()
}

func readBAFVariables(ctx context.Context, db *sql.DB) (map[int64]map[string]float64, error) {
	out := map[int64]map[string]float64{}
	for _, table := range []string{"Variables", "SupportedVariables"} {
		ok, err := tableExists(ctx, db, table)
		if err != nil || !ok {
			return out, err
		}
	}
	rows, err := db.QueryContext(ctx, `
        SELECT v.Spectrum, s.PermanentName, v.Value
        FROM Variables v
        JOIN SupportedVariables s ON s.Variable = v.Variable
        WHERE s.PermanentName IN (?, ?, ?)`,
		bafVarCollisionEnergy, bafVarIsolationWidth, bafVarChargeState)
	if err != nil {
		return nil, fmt.Errorf("read Variables: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			spectrumID int64
			name       string
			value      sql.NullFloat64
		)
		if err := rows.Scan(&spectrumID, &name, &value); err != nil {
			return nil, fmt.Errorf("scan Variables: %w", err)
		}
		if !value.Valid {
			continue
		}
		if out[spectrumID] == nil {
			out[spectrumID] = map[string]float64{}
		}
		out[spectrumID][name] = value.Float64
	}
	return out, rows.Err()
}
