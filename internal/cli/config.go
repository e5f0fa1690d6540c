package cli

import (
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mfeltner/lattice/pkg/archive"
	"github.com/mfeltner/lattice/pkg/cache"
	"github.com/mfeltner/lattice/pkg/errors"
	"github.com/mfeltner/lattice/pkg/grouping"
	"github.com/mfeltner/lattice/pkg/view"
)

// Config is the server's TOML configuration.
type Config struct {
	// Listen address for the HTTP API.
	Listen string `toml:"listen"`

	// Grouping mode: none, namespace, or label.
	Grouping string `toml:"grouping"`

	// View mode: full or compact.
	View string `toml:"view"`

	Solver  SolverConfig  `toml:"solver"`
	Cache   CacheConfig   `toml:"cache"`
	Archive ArchiveConfig `toml:"archive"`
	Source  SourceConfig  `toml:"source"`
}

// SolverConfig bounds the layout solver.
type SolverConfig struct {
	// TimeoutSeconds aborts a single solve after this many seconds.
	// Zero disables the timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// CacheConfig selects the placement cache backend.
type CacheConfig struct {
	// Backend: memory (default), redis, or none.
	Backend string            `toml:"backend"`
	Redis   cache.RedisConfig `toml:"redis"`
}

// ArchiveConfig selects the snapshot archive backend.
type ArchiveConfig struct {
	// Backend: none (default), memory, or mongo.
	Backend string              `toml:"backend"`
	Mongo   archive.MongoConfig `toml:"mongo"`
}

// SourceConfig configures the optional snapshot poller.
type SourceConfig struct {
	// URL of a snapshot endpoint. Empty disables polling; snapshots
	// then arrive only via the API.
	URL string `toml:"url"`

	// IntervalSeconds between polls. Zero uses the default interval.
	IntervalSeconds int `toml:"interval_seconds"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:   ":8080",
		Grouping: string(grouping.ModeLabel),
		View:     string(view.ModeFull),
		Cache:    CacheConfig{Backend: "memory"},
		Archive:  ArchiveConfig{Backend: "none"},
	}
}

// LoadConfig reads a TOML config file, layered over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "reading config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks mode names and backend selections.
func (c Config) Validate() error {
	if !grouping.Mode(c.Grouping).Valid() {
		return errors.New(errors.ErrCodeInvalidConfig, "unknown grouping mode %q", c.Grouping)
	}
	if !view.Mode(c.View).Valid() {
		return errors.New(errors.ErrCodeInvalidConfig, "unknown view mode %q", c.View)
	}
	switch c.Cache.Backend {
	case "", "memory", "redis", "none":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Archive.Backend {
	case "", "none", "memory", "mongo":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown archive backend %q", c.Archive.Backend)
	}
	if c.Solver.TimeoutSeconds < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "solver timeout must not be negative")
	}
	return nil
}

// SolveTimeout returns the configured solver timeout as a duration.
func (c Config) SolveTimeout() time.Duration {
	return time.Duration(c.Solver.TimeoutSeconds) * time.Second
}

// PollInterval returns the configured poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Source.IntervalSeconds) * time.Second
}
