package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mfeltner/lattice/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.SolveTimeout() != 0 {
		t.Errorf("solver timeout = %v, want disabled by default", cfg.SolveTimeout())
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lattice.toml")
	content := `
listen = ":9090"
grouping = "namespace"
view = "compact"

[solver]
timeout_seconds = 5

[cache]
backend = "redis"

[cache.redis]
addr = "localhost:6379"

[source]
url = "http://example.test/graph"
interval_seconds = 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Listen != ":9090" || cfg.Grouping != "namespace" || cfg.View != "compact" {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.SolveTimeout() != 5*time.Second {
		t.Errorf("solver timeout = %v", cfg.SolveTimeout())
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis.Addr != "localhost:6379" {
		t.Errorf("cache config = %+v", cfg.Cache)
	}
	if cfg.PollInterval() != 30*time.Second {
		t.Errorf("poll interval = %v", cfg.PollInterval())
	}
	// Unset sections keep their defaults.
	if cfg.Archive.Backend != "none" {
		t.Errorf("archive backend = %q, want default", cfg.Archive.Backend)
	}
}

func TestLoadConfigRejectsBadModes(t *testing.T) {
	for name, content := range map[string]string{
		"grouping": `grouping = "bogus"`,
		"view":     `view = "bogus"`,
		"cache":    "[cache]\nbackend = \"bogus\"",
		"timeout":  "[solver]\ntimeout_seconds = -1",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lattice.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfig(path)
			if errors.GetCode(err) != errors.ErrCodeInvalidConfig {
				t.Errorf("LoadConfig() error = %v, want invalid-config code", err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/lattice.toml"); err == nil {
		t.Error("LoadConfig() accepted a missing file")
	}
}
