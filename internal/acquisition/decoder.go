package acquisition

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"timsconvert/internal/spectrum"
)

// Decoder supplies peak arrays for frames and PASEF precursors.
type Decoder interface {
	Peaks(ctx context.Context, req PeakRequest) (spectrum.Peaks, error)
	// PrecursorMobility returns the 1/K0 of a precursor, if known.
	PrecursorMobility(ctx context.Context, precursor int64) (float64, bool, error)
	Close() error
}

// SQLiteDecoder reads pre-decoded payload tables from the acquisition database.
// Missing rows decode to empty spectra.
type SQLiteDecoder struct {
	db          *sql.DB
	hasFrames   bool
	hasPrecs    bool
	hasMobility bool
}

// NewSQLiteDecoder probes db for the payload tables. The decoder does not own db.
func NewSQLiteDecoder(ctx context.Context, db *sql.DB) (*SQLiteDecoder, error) {
	d := &SQLiteDecoder{db: db}
	var err error
	if d.hasFrames, err = tableExists(ctx, db, "DecodedPeaks"); err != nil {
		return nil, err
	}
	if d.hasPrecs, err = tableExists(ctx, db, "DecodedPrecursorPeaks"); err != nil {
		return nil, err
	}
	if d.hasMobility, err = tableExists(ctx, db, "DecodedPrecursorMobility"); err != nil {
		return nil, err
	}
	return d, nil
}

// Peaks returns the arrays stored for the request's frame or precursor.
func (d *SQLiteDecoder) Peaks(ctx context.Context, req PeakRequest) (spectrum.Peaks, error) {
	var (
		mzBlob, intBlob, mobBlob []byte
		err                      error
	)
	mode := req.Mode.String()
	switch {
	case req.Precursor != 0:
		if !d.hasPrecs {
			return spectrum.Peaks{}, nil
		}
		err = d.db.QueryRowContext(ctx,
			`SELECT Mz, Intensity FROM DecodedPrecursorPeaks WHERE Precursor = ? AND Mode = ?`,
			req.Precursor, mode).Scan(&mzBlob, &intBlob)
	default:
		if !d.hasFrames {
			return spectrum.Peaks{}, nil
		}
		err = d.db.QueryRowContext(ctx,
			`SELECT Mz, Intensity, Mobility FROM DecodedPeaks WHERE Frame = ? AND Mode = ?`,
			req.Frame, mode).Scan(&mzBlob, &intBlob, &mobBlob)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return spectrum.Peaks{}, nil
	}
	if err != nil {
		return spectrum.Peaks{}, fmt.Errorf("decode peaks frame=%d precursor=%d: %w", req.Frame, req.Precursor, err)
	}

	peaks := spectrum.Peaks{}
	if peaks.MZ, err = decodeFloat64s(mzBlob); err != nil {
		return spectrum.Peaks{}, fmt.Errorf("decode m/z array: %w", err)
	}
	if peaks.Intensity, err = decodeFloat64s(intBlob); err != nil {
		return spectrum.Peaks{}, fmt.Errorf("decode intensity array: %w", err)
	}
	if len(mobBlob) > 0 {
		if peaks.Mobility, err = decodeFloat64s(mobBlob); err != nil {
			return spectrum.Peaks{}, fmt.Errorf("decode mobility array: %w", err)
		}
	}
	return peaks, nil
}

// PrecursorMobility looks up the stored 1/K0 of a PASEF precursor.
func (d *SQLiteDecoder) PrecursorMobility(ctx context.Context, precursor int64) (float64, bool, error) {
	if !d.hasMobility {
		return 0, false, nil
	}
	var value sql.NullFloat64
	err := d.db.QueryRowContext(ctx,
		`SELECT OneOverK0 FROM DecodedPrecursorMobility WHERE Precursor = ?`, precursor).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("precursor %d mobility: %w", precursor, err)
	}
	return value.Float64, value.Valid, nil
}

// Close is a no-op; the catalog owns the database handle.
func (d *SQLiteDecoder) Close() error { return nil }

func decodeFloat64s(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(blob))
	}
	out := make([]float64, len(blob)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return out, nil
}
