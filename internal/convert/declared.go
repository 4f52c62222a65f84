package convert

import "timsconvert/internal/acquisition"

// DeclaredCount is the spectrum count announced in the spectrumList header
// before any spectrum is written. It is derived from table row counts only,
// so it can differ from what is actually written.
func DeclaredCount(schema acquisition.Schema) int {
	switch schema.Kind() {
	case acquisition.KindTSF:
		return schema.RowCountFor(acquisition.CountFrames)
	default:
		return schema.RowCountFor(acquisition.CountMS1) + schema.RowCountFor(acquisition.CountMS2)
	}
}
