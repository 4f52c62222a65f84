package acquisition

import (
	"context"
	"database/sql"
	"fmt"
	"math"
)

// tdfSchema adapts analysis.tdf: timsTOF acquisitions with trapped ion
// mobility, PASEF precursors and per-point mobility arrays.
type tdfSchema struct {
	*catalog
	precursorCount int
}

func (s *tdfSchema) Kind() Kind { return KindTDF }

func (s *tdfSchema) SupportsRawMode() bool { return true }

func (s *tdfSchema) SupportsMobility() bool { return true }

// RowCountFor counts MS1 frames and precursors with a monoisotopic m/z.
func (s *tdfSchema) RowCountFor(key CountKey) int {
	switch key {
	case CountMS1:
		return s.countLevel(1)
	case CountMS2:
		return s.precursorCount
	default:
		return len(s.frames)
	}
}

func loadTDF(ctx context.Context, path string, db *sql.DB) (*tdfSchema, error) {
	meta, err := readKeyValue(ctx, db, "GlobalMetadata")
	if err != nil {
		return nil, err
	}
	frames, err := readTimsFrames(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := applyMaldiFrameInfo(ctx, db, frames); err != nil {
		return nil, err
	}
	info, err := readFrameMsMsInfo(ctx, db)
	if err != nil {
		return nil, err
	}

	products := frameProducts(frames, info, func(f Frame) bool { return f.MsMsType == msmsTypeDDAPASEF })
	pasef, count, err := readPasefPrecursors(ctx, db, frames)
	if err != nil {
		return nil, err
	}
	products = append(products, pasef...)

	return &tdfSchema{
		catalog:        newCatalog(path, db, meta, frames, products),
		precursorCount: count,
	}, nil
}

// readPasefPrecursors reads ddaPASEF precursors. Each precursor is fragmented
// across one or more PASEF frames; the product is keyed to its first frame.
func readPasefPrecursors(ctx context.Context, db *sql.DB, frames []Frame) ([]Product, int, error) {
	for _, table := range []string{"Precursors", "PasefFrameMsMsInfo"} {
		ok, err := tableExists(ctx, db, table)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return nil, 0, nil
		}
	}

	var declared int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Precursors WHERE MonoisotopicMz IS NOT NULL`).Scan(&declared); err != nil {
		return nil, 0, fmt.Errorf("count Precursors: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
        SELECT p.Id, p.LargestPeakMz, p.MonoisotopicMz, p.Charge, p.Intensity, p.Parent,
               MIN(i.Frame), i.IsolationMz, i.IsolationWidth, AVG(i.CollisionEnergy)
        FROM Precursors p
        JOIN PasefFrameMsMsInfo i ON i.Precursor = p.Id
        GROUP BY p.Id
        ORDER BY p.Id`)
	if err != nil {
		return nil, 0, fmt.Errorf("read Precursors: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]Frame, len(frames))
	for _, f := range frames {
		byID[f.ID] = f
	}

	var products []Product
	for rows.Next() {
		var (
			id, frame                    int64
			largest, mono, charge, inten sql.NullFloat64
			parent                       sql.NullInt64
			isoMZ, isoWidth, ce          sql.NullFloat64
		)
		if err := rows.Scan(&id, &largest, &mono, &charge, &inten, &parent, &frame, &isoMZ, &isoWidth, &ce); err != nil {
			return nil, 0, fmt.Errorf("scan Precursors: %w", err)
		}
		selected := largest.Float64
		if mono.Valid && !math.IsNaN(mono.Float64) {
			selected = mono.Float64
		}
		p := Product{
			Key:             id,
			Frame:           frame,
			FromPrecursor:   true,
			HasPrecursor:    true,
			SelectedIonMZ:   selected,
			TargetMZ:        isoMZ.Float64,
			IsolationWidth:  isoWidth.Float64,
			Charge:          nullFloat(charge),
			Intensity:       optionalFloat(inten),
			CollisionEnergy: ce.Float64,
		}
		if parent.Valid {
			p.Parent = parent.Int64
		}
		if f, ok := byID[frame]; ok {
			p.Time = f.Time
			p.Polarity = f.Polarity
		}
		products = append(products, p)
	}
	return products, declared, rows.Err()
}
