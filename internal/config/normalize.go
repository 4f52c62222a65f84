package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConversion()
	if err := c.normalizeMaldi(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConversion() {
	c.Conversion.Mode = strings.ToLower(strings.TrimSpace(c.Conversion.Mode))
	if c.Conversion.Mode == "" {
		c.Conversion.Mode = defaultMode
	}
	c.Conversion.Compression = strings.ToLower(strings.TrimSpace(c.Conversion.Compression))
	if c.Conversion.Compression == "" {
		c.Conversion.Compression = defaultCompression
	}
	if c.Conversion.Encoding == 0 {
		c.Conversion.Encoding = defaultEncoding
	}
	if c.Conversion.ChunkSize == 0 {
		c.Conversion.ChunkSize = defaultChunkSize
	}
}

func (c *Config) normalizeMaldi() error {
	c.Maldi.OutputFile = strings.ToLower(strings.TrimSpace(c.Maldi.OutputFile))
	if c.Maldi.OutputFile == "" {
		c.Maldi.OutputFile = defaultMaldiOutputFile
	}
	c.Maldi.ImzMLMode = strings.ToLower(strings.TrimSpace(c.Maldi.ImzMLMode))
	if c.Maldi.ImzMLMode == "" {
		c.Maldi.ImzMLMode = defaultImzMLMode
	}
	var err error
	if c.Maldi.PlateMap, err = expandPath(strings.TrimSpace(c.Maldi.PlateMap)); err != nil {
		return fmt.Errorf("maldi.plate_map: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("TIMSCONVERT_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
