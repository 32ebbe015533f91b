package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvRequiresBackendURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("STEPFORM_CONFIG", "")

	_, err := FromEnv()
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("FromEnv without BACKEND_URL = %v, want MissingError", err)
	}
	if missing.Name != "BACKEND_URL" {
		t.Errorf("missing value = %q, want BACKEND_URL", missing.Name)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.example.com")
	t.Setenv("STEPFORM_CONFIG", "")
	t.Setenv("STEPFORM_ADDR", "")
	t.Setenv("STEPFORM_SAVE_DEBOUNCE", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if cfg.SaveDebounce != DefaultSaveDebounce {
		t.Errorf("SaveDebounce = %v, want %v", cfg.SaveDebounce, DefaultSaveDebounce)
	}
	if cfg.CookieMaxAge != 2*time.Hour {
		t.Errorf("CookieMaxAge = %v, want 2h", cfg.CookieMaxAge)
	}
}

func TestFromEnvYAMLOverlayThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stepform.yaml")
	data := []byte("backend_url: https://file.example.com\napp_name: FileApp\naddr: \":9999\"\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STEPFORM_CONFIG", path)
	t.Setenv("BACKEND_URL", "https://env.example.com")
	t.Setenv("STEPFORM_ADDR", "")
	t.Setenv("STEPFORM_APP_NAME", "")
	t.Setenv("STEPFORM_SAVE_DEBOUNCE", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.BackendURL != "https://env.example.com" {
		t.Errorf("BackendURL = %q, env should override file", cfg.BackendURL)
	}
	if cfg.AppName != "FileApp" {
		t.Errorf("AppName = %q, want file value FileApp", cfg.AppName)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want file value :9999", cfg.Addr)
	}
}

func TestFromEnvBadDebounce(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.example.com")
	t.Setenv("STEPFORM_CONFIG", "")
	t.Setenv("STEPFORM_SAVE_DEBOUNCE", "soon")

	if _, err := FromEnv(); err == nil {
		t.Error("bad duration accepted")
	}
}
