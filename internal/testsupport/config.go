package testsupport

import (
	"path/filepath"
	"testing"

	"rollcall/internal/config"
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
	cfg.Paths.ExportDir = filepath.Join(base, "exports")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithCooldown overrides the attendance cooldown in seconds.
func WithCooldown(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Attendance.CooldownSeconds = seconds
	}
}

// WithFullAgreement requires every frame in the tracker window to agree.
func WithFullAgreement() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tracker.AgreementFraction = 1.0
	}
}
