package acquisition

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"timsconvert/internal/spectrum"
)

// MsMsType values shared by the TDF and TSF Frames tables.
const (
	msmsTypeMS1      = 0
	msmsTypeDDAPASEF = 8
)

func msLevelForMsMsType(t int) int {
	if t == msmsTypeMS1 {
		return 1
	}
	return 2
}

// readTimsFrames reads the Frames table of a TDF or TSF file.
func readTimsFrames(ctx context.Context, db *sql.DB) ([]Frame, error) {
	rows, err := db.QueryContext(ctx, `SELECT Id, Time, Polarity, MsMsType FROM Frames ORDER BY Id`)
	if err != nil {
		return nil, fmt.Errorf("read Frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var (
			f        Frame
			polarity sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.Time, &polarity, &f.MsMsType); err != nil {
			return nil, fmt.Errorf("scan Frames: %w", err)
		}
		f.Polarity = spectrum.ParsePolarity(polarity.String)
		f.MSLevel = msLevelForMsMsType(f.MsMsType)
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// applyMaldiFrameInfo attaches spot names and raster positions when the
// acquisition carries a MaldiFrameInfo table.
func applyMaldiFrameInfo(ctx context.Context, db *sql.DB, frames []Frame) error {
	ok, err := tableExists(ctx, db, "MaldiFrameInfo")
	if err != nil || !ok {
		return err
	}
	rows, err := db.QueryContext(ctx, `SELECT Frame, SpotName, XIndexPos, YIndexPos FROM MaldiFrameInfo`)
	if err != nil {
		return fmt.Errorf("read MaldiFrameInfo: %w", err)
	}
	defer rows.Close()

	index := make(map[int64]int, len(frames))
	for i := range frames {
		index[frames[i].ID] = i
	}
	for rows.Next() {
		var (
			frame    int64
			spotName sql.NullString
			x, y     sql.NullInt64
		)
		if err := rows.Scan(&frame, &spotName, &x, &y); err != nil {
			return fmt.Errorf("scan MaldiFrameInfo: %w", err)
		}
		i, ok := index[frame]
		if !ok {
			continue
		}
		if x.Valid && y.Valid {
			frames[i].Pixel = &spectrum.Pixel{X: int(x.Int64), Y: int(y.Int64)}
		}
		switch {
		case spotName.Valid && spotName.String != "":
			frames[i].Coord = spotName.String
		case frames[i].Pixel != nil:
			frames[i].Coord = fmt.Sprintf("%d,%d", frames[i].Pixel.X, frames[i].Pixel.Y)
		}
	}
	return rows.Err()
}

type frameMsMsInfo struct {
	parent          int64
	triggerMass     float64
	isolationWidth  float64
	charge          float64
	collisionEnergy float64
}

// readFrameMsMsInfo loads per-frame MS/MS settings keyed by frame id.
func readFrameMsMsInfo(ctx context.Context, db *sql.DB) (map[int64]frameMsMsInfo, error) {
	out := map[int64]frameMsMsInfo{}
	ok, err := tableExists(ctx, db, "FrameMsMsInfo")
	if err != nil || !ok {
		return out, err
	}
	rows, err := db.QueryContext(ctx, `SELECT Frame, Parent, TriggerMass, IsolationWidth, PrecursorCharge, CollisionEnergy FROM FrameMsMsInfo`)
	if err != nil {
		return nil, fmt.Errorf("read FrameMsMsInfo: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			frame                      int64
			parent                     sql.NullInt64
			trigger, width, charge, ce sql.NullFloat64
		)
		if err := rows.Scan(&frame, &parent, &trigger, &width, &charge, &ce); err != nil {
			return nil, fmt.Errorf("scan FrameMsMsInfo: %w", err)
		}
		info := frameMsMsInfo{
			triggerMass:     nullFloat(trigger),
			isolationWidth:  nullFloat(width),
			charge:          nullFloat(charge),
			collisionEnergy: ce.Float64,
		}
		if parent.Valid {
			info.parent = parent.Int64
		}
		out[frame] = info
	}
	return out, rows.Err()
}

// frameProducts turns frame-level MS/MS frames into products. A frame without
// a trigger mass has no resolvable precursor.
func frameProducts(frames []Frame, info map[int64]frameMsMsInfo, skip func(Frame) bool) []Product {
	var products []Product
	for _, f := range frames {
		if f.MSLevel != 2 || (skip != nil && skip(f)) {
			continue
		}
		p := Product{
			Key:      f.ID,
			Frame:    f.ID,
			Time:     f.Time,
			Polarity: f.Polarity,
			Charge:   math.NaN(),
			Coord:    f.Coord,
			Pixel:    f.Pixel,
		}
		if msms, ok := info[f.ID]; ok {
			p.CollisionEnergy = msms.collisionEnergy
			if !math.IsNaN(msms.triggerMass) && msms.triggerMass > 0 {
				p.HasPrecursor = true
				p.Parent = msms.parent
				p.SelectedIonMZ = msms.triggerMass
				p.TargetMZ = msms.triggerMass
				if !math.IsNaN(msms.isolationWidth) {
					p.IsolationWidth = msms.isolationWidth
				}
				p.Charge = msms.charge
			}
		}
		products = append(products, p)
	}
	return products
}
