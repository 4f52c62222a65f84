// Package config loads, normalizes, and validates timsconvert configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the TIMSCONVERT_LOG_LEVEL
// environment override. Command-line flags are applied on top of the loaded
// Config by the CLI.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum spellings, and clear validation errors.
package config
