package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loadqueue/loadexec/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loadexec.yaml")
	if err := os.WriteFile(path, []byte("workers: 8\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 8 {
		t.Fatalf("expected workers=8, got %d", cfg.Workers)
	}
	if cfg.MaxRetries != 5 {
		t.Fatalf("expected default max_retries=5, got %d", cfg.MaxRetries)
	}
	if cfg.PollInterval != 1*time.Second {
		t.Fatalf("expected default poll_interval=1s, got %s", cfg.PollInterval)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loadexec.yaml")
	if err := os.WriteFile(path, []byte("workers: 2\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOADEXEC_WORKERS", "16")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 16 {
		t.Fatalf("expected env override workers=16, got %d", cfg.Workers)
	}
}
