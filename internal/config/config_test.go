package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wgram/wgram/internal/config"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`telegram:
  api_id: 12345
  api_hash: "abcdef0123456789"
  session_file: "/tmp/test.session"
server:
  addr: "0.0.0.0:8080"
log_level: debug
`)
	if err := os.WriteFile(cfgPath, content, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Telegram.APIID != 12345 {
		t.Errorf("APIID = %d, want 12345", cfg.Telegram.APIID)
	}
	if cfg.Telegram.APIHash != "abcdef0123456789" {
		t.Errorf("APIHash = %q, want %q", cfg.Telegram.APIHash, "abcdef0123456789")
	}
	if cfg.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("Addr = %q, want 0.0.0.0:8080", cfg.Server.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:3000" {
		t.Errorf("Addr = %q, want default", cfg.Server.Addr)
	}
	if cfg.Telegram.SessionFile != "wgram.session" {
		t.Errorf("SessionFile = %q, want default", cfg.Telegram.SessionFile)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("telegram:\n  api_id: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TELEGRAM_API_ID", "99")
	t.Setenv("TELEGRAM_API_HASH", "envhash")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Telegram.APIID != 99 {
		t.Errorf("APIID = %d, want env override 99", cfg.Telegram.APIID)
	}
	if cfg.Telegram.APIHash != "envhash" {
		t.Errorf("APIHash = %q, want envhash", cfg.Telegram.APIHash)
	}
}
