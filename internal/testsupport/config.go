package testsupport

import (
	"path/filepath"
	"testing"

	"timsconvert/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithChunkSize overrides the number of parent frames per chunk.
func WithChunkSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Conversion.ChunkSize = n
	}
}

// WithMode overrides the export mode.
func WithMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Conversion.Mode = mode
	}
}

// WithMaldiOutput sets the dried-droplet topology and writes the plate map
// rows to a CSV inside the test directory. Nil rows leave the plate map unset.
func WithMaldiOutput(topology string, rows [][2]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Maldi.OutputFile = topology
		if rows != nil {
			b.cfg.Maldi.PlateMap = WritePlateMap(b.t, b.baseDir, rows)
		}
	}
}
