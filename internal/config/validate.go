package config

import (
	"errors"
	"fmt"

	"timsconvert/internal/spectrum"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateMaldi(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateConversion() error {
	if _, err := spectrum.ParseMode(c.Conversion.Mode); err != nil {
		return fmt.Errorf("conversion.%w", err)
	}
	if _, err := spectrum.ParseEncoding(c.Conversion.Encoding); err != nil {
		return fmt.Errorf("conversion.%w", err)
	}
	if _, err := spectrum.ParseCompression(c.Conversion.Compression); err != nil {
		return fmt.Errorf("conversion.%w", err)
	}
	if c.Conversion.ChunkSize <= 0 {
		return errors.New("conversion.chunk_size must be positive")
	}
	if c.Conversion.ProfileBins < 0 {
		return errors.New("conversion.profile_bins must be >= 0")
	}
	return nil
}

func (c *Config) validateMaldi() error {
	topology, err := spectrum.ParseTopology(c.Maldi.OutputFile)
	if err != nil {
		return fmt.Errorf("maldi.output_file: %w", err)
	}
	if _, err := spectrum.ParseImzMLMode(c.Maldi.ImzMLMode); err != nil {
		return fmt.Errorf("maldi.imzml_mode: %w", err)
	}
	if topology.RequiresPlateMap() && c.Maldi.PlateMap == "" {
		return fmt.Errorf("maldi.plate_map must be set when maldi.output_file is %q", topology)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
