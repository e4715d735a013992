package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VITE_API_URL", "")
	t.Setenv("API_BASE_URL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logger:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.Cart.PollInterval != 500*time.Millisecond {
		t.Errorf("poll interval = %v", cfg.Cart.PollInterval)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("logger level = %q, want debug from file", cfg.Logger.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SNAP2SELL_STORAGE_DRIVER", "Memory")
	t.Setenv("SNAP2SELL_API_BASE_URL", "")
	t.Setenv("VITE_API_URL", "https://shop.example.com/api/")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  timeout: 3s\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.API.BaseURL != "https://shop.example.com/api" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
