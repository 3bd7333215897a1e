package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"krscreener/auth"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if cfg.Server.Addr != ":8501" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Auth.PasswordHash != auth.DefaultHash {
		t.Errorf("password hash default missing")
	}
	if cfg.FetchDelay() != 100*time.Millisecond {
		t.Errorf("fetch delay = %v", cfg.FetchDelay())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
screener:
  fetch_delay_ms: 250
  gap_threshold: 3.5
log:
  level: debug
`)
	t.Setenv("KRSCREENER_ADDR", ":9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9100" {
		t.Errorf("env override lost: addr = %q", cfg.Server.Addr)
	}
	if cfg.Screener.FetchDelayMs != 250 || cfg.Screener.GapThreshold != 3.5 {
		t.Errorf("file values lost: %+v", cfg.Screener)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [not\n  a map")
	if _, err := Load(path); err == nil {
		t.Error("malformed YAML must fail")
	}
}

func TestValidate(t *testing.T) {
	cfg, _ := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	cfg.Log.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("bad log level must fail validation")
	}
	cfg.Log.Level = "info"

	cfg.Screener.GapThreshold = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative gap threshold must fail validation")
	}
}
