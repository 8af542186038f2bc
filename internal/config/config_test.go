package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "API_TEST_TIMEOUT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SheetName != "Sheet1" || cfg.HeaderRow != 1 || cfg.Timeout != 30*time.Second || cfg.Port != "8080" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"excel_path":"apis.xlsx","sheet_name":"APIs","header_row":2,"timeout":"5s","row_delay":"2","access_token":"file"}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SESSION_ACCESS_TOKEN", "env")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ExcelPath != "apis.xlsx" || cfg.SheetName != "APIs" || cfg.HeaderRow != 2 {
		t.Errorf("unexpected file values: %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second || cfg.RowDelay != 2*time.Second {
		t.Errorf("unexpected durations: %v %v", cfg.Timeout, cfg.RowDelay)
	}
	if cfg.AccessToken != "env" || cfg.Port != "9090" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"":      time.Minute,
		"1m30s": 90 * time.Second,
		"10":    10 * time.Second,
		"abc":   time.Minute,
		"-1s":   time.Minute,
	}
	for in, want := range tests {
		if got := parseDuration(in, time.Minute); got != want {
			t.Errorf("parseDuration(%q) = %v, want %v", in, got, want)
		}
	}
}
