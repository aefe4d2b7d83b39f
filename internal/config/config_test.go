package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rollcall/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config at %s", path)
	}
	if cfg.Attendance.CooldownSeconds != 300 {
		t.Fatalf("expected default cooldown 300, got %d", cfg.Attendance.CooldownSeconds)
	}
	if cfg.Tracker.MinStableFrames != 4 || cfg.Tracker.WindowLength != 8 {
		t.Fatalf("unexpected tracker defaults: %+v", cfg.Tracker)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[attendance]
cooldown_seconds = 60

[tracker]
agreement_fraction = 1.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Attendance.CooldownSeconds != 60 {
		t.Fatalf("expected cooldown 60, got %d", cfg.Attendance.CooldownSeconds)
	}
	if cfg.Tracker.AgreementFraction != 1.0 {
		t.Fatalf("expected full agreement, got %v", cfg.Tracker.AgreementFraction)
	}
}

func TestValidateRejectsBadTrackerWindow(t *testing.T) {
	cfg := config.Default()
	cfg.Tracker.MinStableFrames = 12
	cfg.Tracker.WindowLength = 8
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error when min_stable_frames exceeds window_length")
	}
	if !strings.Contains(err.Error(), "min_stable_frames") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownCalendar(t *testing.T) {
	cfg := config.Default()
	cfg.Payroll.Calendar = "lunar"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown calendar")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error writing over existing config")
	}
}
