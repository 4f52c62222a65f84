package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"timsconvert/internal/logging"
)

// Database file names that identify each schema inside a .d directory.
const (
	tdfFileName = "analysis.tdf"
	tsfFileName = "analysis.tsf"
	bafFileName = "analysis.sqlite"
)

// ErrUnsupportedInput is returned when a directory holds no known acquisition database.
var ErrUnsupportedInput = errors.New("no analysis.tdf, analysis.tsf or analysis.sqlite found")

// OpenOptions customise Open.
type OpenOptions struct {
	// Decoder overrides the bundled SQLiteDecoder.
	Decoder Decoder
	Logger  *slog.Logger
}

// DetectKind returns the schema of the .d directory at dir.
func DetectKind(dir string) (Kind, string, error) {
	candidates := []struct {
		kind Kind
		name string
	}{
		{KindTDF, tdfFileName},
		{KindTSF, tsfFileName},
		{KindBAF, bafFileName},
	}
	for _, c := range candidates {
		path := filepath.Join(dir, c.name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return c.kind, path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return 0, "", fmt.Errorf("%s: %w", dir, ErrUnsupportedInput)
}

// Open selects the schema adapter for dir and loads its tabular metadata.
func Open(ctx context.Context, dir string, opts OpenOptions) (Schema, error) {
	logger := logging.NewComponentLogger(opts.Logger, "acquisition")

	kind, dbPath, err := DetectKind(dir)
	if err != nil {
		return nil, err
	}
	db, err := openDB(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	var (
		schema Schema
		cat    *catalog
	)
	switch kind {
	case KindTDF:
		s, loadErr := loadTDF(ctx, dir, db)
		if loadErr == nil {
			schema, cat = s, s.catalog
		}
		err = loadErr
	case KindTSF:
		s, loadErr := loadTSF(ctx, dir, db)
		if loadErr == nil {
			schema, cat = s, s.catalog
		}
		err = loadErr
	case KindBAF:
		s, loadErr := loadBAF(ctx, dir, db)
		if loadErr == nil {
			schema, cat = s, s.catalog
		}
		err = loadErr
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load %s metadata: %w", kind, err)
	}

	if opts.Decoder != nil {
		cat.decoder = opts.Decoder
	} else {
		decoder, decErr := NewSQLiteDecoder(ctx, db)
		if decErr != nil {
			_ = db.Close()
			return nil, decErr
		}
		cat.decoder = decoder
	}

	logger.Debug("acquisition opened",
		logging.String("schema", kind.String()),
		logging.String("application", schema.Application().String()),
		logging.Int("frames", len(cat.frames)),
		logging.Int("products", len(cat.products)),
	)
	return schema, nil
}
