package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_FILE", "SPLIT_START", "SPLIT_DIRECTION", "SPLIT_VERIFY", "HTTP_TIMEOUT", "METRICS_FILE", "AXIOM_DATASET"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Logging.File != "" {
		t.Errorf("Logging.File = %q, want no file by default", cfg.Logging.File)
	}
	if cfg.Split.Start != 3 || cfg.Split.Direction != "vertical" || cfg.Split.Verify {
		t.Errorf("Split = %+v", cfg.Split)
	}
	if cfg.Storage.HTTPTimeout != 60*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.Storage.HTTPTimeout)
	}
	if cfg.Axiom.Dataset != "dev_pdfsplit" {
		t.Errorf("Axiom.Dataset = %q", cfg.Axiom.Dataset)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SPLIT_START", "1")
	t.Setenv("SPLIT_DIRECTION", "horizontal")
	t.Setenv("SPLIT_VERIFY", "yes")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("S3_FORCE_PATH_STYLE", "true")
	t.Setenv("LOG_MAX_BACKUPS", "not-a-number")

	cfg := FromEnv()
	if cfg.Split.Start != 1 || cfg.Split.Direction != "horizontal" || !cfg.Split.Verify {
		t.Errorf("Split = %+v", cfg.Split)
	}
	if cfg.Storage.HTTPTimeout != 5*time.Second || !cfg.Storage.ForcePathStyle {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Logging.MaxBackups != 10 {
		t.Errorf("bad int should fall back to default, got %d", cfg.Logging.MaxBackups)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("SPLIT_DIRECTION=horizontal\nMETRICS_FILE=/tmp/pdfsplit.prom\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// An explicit environment value beats the file.
	t.Setenv("METRICS_FILE", "/var/lib/metrics/pdfsplit.prom")
	// Registered so the variable is restored after the test.
	t.Setenv("SPLIT_DIRECTION", "")
	os.Unsetenv("SPLIT_DIRECTION")

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Split.Direction != "horizontal" {
		t.Errorf("Direction = %q, want value from .env", cfg.Split.Direction)
	}
	if cfg.Metrics.File != "/var/lib/metrics/pdfsplit.prom" {
		t.Errorf("Metrics.File = %q", cfg.Metrics.File)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}
