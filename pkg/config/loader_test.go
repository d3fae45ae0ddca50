package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "optd.yaml")

	content := []byte(`
log_level: warn
optimization:
  max_iterations: 3
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected log_level warn, got %s", cfg.LogLevel)
	}
	if cfg.Optimization.MaxIterations != 3 {
		t.Errorf("expected max_iterations 3, got %d", cfg.Optimization.MaxIterations)
	}
	// Untouched sections keep defaults.
	if cfg.Store.Backend != "memory" {
		t.Errorf("expected memory store default, got %s", cfg.Store.Backend)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
