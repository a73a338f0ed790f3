package testsupport

import (
	"path/filepath"
	"testing"

	"splitledger/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithInviteExpiryDays overrides the invitation acceptance window.
func WithInviteExpiryDays(days int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Jobs.InviteExpiryDays = days
	}
}
