package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IDEAFLOW_CONFIG", "")
	t.Setenv("API_ADDR", "")
	t.Setenv("IDEAFLOW_ACCESS_TTL_SECONDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Fatalf("expected default addr :3000, got %q", cfg.Addr)
	}
	if cfg.AccessTTL != 24*time.Hour {
		t.Fatalf("expected 24h access ttl, got %s", cfg.AccessTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("expected bcrypt cost 12, got %d", cfg.BcryptCost)
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ideaflow.yaml")
	contents := "addr: \":9000\"\nnotifier: nats\naccess_ttl_seconds: 60\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("IDEAFLOW_CONFIG", path)
	t.Setenv("API_ADDR", ":9100")
	t.Setenv("IDEAFLOW_NOTIFIER", "")
	t.Setenv("IDEAFLOW_ACCESS_TTL_SECONDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Fatalf("env should override file, got %q", cfg.Addr)
	}
	if cfg.Notifier != "nats" {
		t.Fatalf("expected notifier from file, got %q", cfg.Notifier)
	}
	if cfg.AccessTTL != time.Minute {
		t.Fatalf("expected 1m access ttl from file, got %s", cfg.AccessTTL)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Setenv("IDEAFLOW_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
