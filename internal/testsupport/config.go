package testsupport

import (
	"path/filepath"
	"testing"

	"spool/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Database = filepath.Join(base, "work", "spool.db")
	cfg.Worker.PollInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithPollInterval overrides the worker poll interval, in seconds.
func WithPollInterval(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Worker.PollInterval = seconds
	}
}
