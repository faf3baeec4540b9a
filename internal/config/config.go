// Package config defines service configuration and how it is loaded.
//
// Values are layered: defaults from New, then an optional YAML file, then
// MODELLAB_* environment variables.
package config

import (
	"fmt"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DatasetPath points at a JSON or YAML baseline dataset. Empty loads the
	// embedded sample.
	DatasetPath string `koanf:"dataset_path"`

	// DatasetStrict rejects unknown fields and unknown metric or model keys.
	DatasetStrict bool `koanf:"dataset_strict"`

	// EditQueueSize bounds the number of edits waiting for the applier.
	EditQueueSize int `koanf:"edit_queue_size"`

	// DedupeSize bounds how many edit IDs are remembered for retries. Zero
	// remembers every ID.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxRankingsLimit caps GET /rankings?limit.
	MaxRankingsLimit int `koanf:"max_rankings_limit"`

	// NotableShift is the |rank delta| at which an entity is flagged.
	NotableShift int `koanf:"notable_shift"`

	// ModifiedTolerance is how far a weight may drift from its default
	// before the vector reports as modified.
	ModifiedTolerance float64 `koanf:"modified_tolerance"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		EditQueueSize:     1024,
		DedupeSize:        10_000,
		MaxRankingsLimit:  100,
		NotableShift:      5,
		ModifiedTolerance: 0.001,
	}
}

// Validate reports the first out-of-range field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.EditQueueSize <= 0:
		return fmt.Errorf("%w: edit_queue_size must be positive, got %d", ErrInvalidConfig, c.EditQueueSize)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.MaxRankingsLimit <= 0:
		return fmt.Errorf("%w: max_rankings_limit must be positive, got %d", ErrInvalidConfig, c.MaxRankingsLimit)
	case c.NotableShift <= 0:
		return fmt.Errorf("%w: notable_shift must be positive, got %d", ErrInvalidConfig, c.NotableShift)
	case c.ModifiedTolerance < 0 || c.ModifiedTolerance >= 1:
		return fmt.Errorf("%w: modified_tolerance must be in [0,1), got %g", ErrInvalidConfig, c.ModifiedTolerance)
	}
	return nil
}
