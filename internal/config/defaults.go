package config

const (
	defaultConfigPath       = "~/.config/timsconvert/config.toml"
	projectConfigName       = "timsconvert.toml"
	defaultLogDir           = "~/.local/share/timsconvert/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultMode             = "centroid"
	defaultEncoding         = 64
	defaultCompression      = "zlib"
	defaultChunkSize        = 10
	defaultMaldiOutputFile  = "combined"
	defaultImzMLMode        = "processed"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Conversion: Conversion{
			Mode:        defaultMode,
			Encoding:    defaultEncoding,
			Compression: defaultCompression,
			ChunkSize:   defaultChunkSize,
		},
		Maldi: Maldi{
			OutputFile: defaultMaldiOutputFile,
			ImzMLMode:  defaultImzMLMode,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
