package acquisition

import (
	"context"
	"database/sql"
)

// tsfSchema adapts analysis.tsf: timsTOF acquisitions without ion mobility.
// TSF payloads have no raw point export.
type tsfSchema struct {
	*catalog
}

func (s *tsfSchema) Kind() Kind { return KindTSF }

func (s *tsfSchema) SupportsRawMode() bool { return false }

func (s *tsfSchema) SupportsMobility() bool { return false }

// RowCountFor treats every non-MS1 frame as an MS2 row.
func (s *tsfSchema) RowCountFor(key CountKey) int {
	switch key {
	case CountMS1:
		return s.countLevel(1)
	case CountMS2:
		return len(s.frames) - s.countLevel(1)
	default:
		return len(s.frames)
	}
}

func loadTSF(ctx context.Context, path string, db *sql.DB) (*tsfSchema, error) {
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
	return &tsfSchema{catalog: newCatalog(path, db, meta, frames, frameProducts(frames, info, nil))}, nil
}
