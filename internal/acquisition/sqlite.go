package acquisition

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"

	_ "modernc.org/sqlite"
)

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA query_only = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return db, nil
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("probe table %s: %w", name, err)
	}
	return n > 0, nil
}

// readKeyValue loads a two-column Key/Value table into Metadata.
func readKeyValue(ctx context.Context, db *sql.DB, table string) (Metadata, error) {
	meta := Metadata{}
	ok, err := tableExists(ctx, db, table)
	if err != nil || !ok {
		return meta, err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT Key, Value FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		meta[key] = value.String
	}
	return meta, rows.Err()
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func optionalFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
