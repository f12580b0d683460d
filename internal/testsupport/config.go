package testsupport

import (
	"path/filepath"
	"testing"

	"pwaforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Stage delays are zeroed so pipeline tests run without artificial waits.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Pipeline.AnalyzeDelayMS = 0
	cfg.Pipeline.ValidateDelayMS = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithStaleAfter overrides the stale threshold on the test config.
func WithStaleAfter(seconds int) ConfigOption {
	return func(c *config.Config) {
		c.Pipeline.StaleAfterSeconds = seconds
	}
}

// WithHistoryPageSize overrides the default history page size.
func WithHistoryPageSize(size int) ConfigOption {
	return func(c *config.Config) {
		c.Pipeline.HistoryPageSize = size
	}
}
