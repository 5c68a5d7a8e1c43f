package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/quantview/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

backtest:
  base_url: "http://backtest.local:8081/api"
  timeout: 10s

export:
  prefix: "report"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Backtest.BaseURL != "http://backtest.local:8081/api" {
		t.Errorf("unexpected base_url: %s", cfg.Backtest.BaseURL)
	}
	if cfg.Backtest.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.Backtest.Timeout)
	}
	if cfg.Export.Prefix != "report" {
		t.Errorf("expected prefix report, got %s", cfg.Export.Prefix)
	}

	// Untouched sections keep defaults
	if cfg.Upload.MaxBytes != 5*1024*1024 {
		t.Errorf("expected default max_bytes, got %d", cfg.Upload.MaxBytes)
	}
	if cfg.Export.Scale != 2 {
		t.Errorf("expected default scale 2, got %d", cfg.Export.Scale)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("QV_TEST_BACKTEST_URL", "http://10.0.0.5:8081/api")

	content := []byte(`
backtest:
  base_url: "${QV_TEST_BACKTEST_URL}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Backtest.BaseURL != "http://10.0.0.5:8081/api" {
		t.Errorf("expected expanded base_url, got %s", cfg.Backtest.BaseURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Backtest.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %s", cfg.Backtest.Timeout)
	}
	if cfg.Export.Prefix != "回测结果" {
		t.Errorf("unexpected default prefix: %s", cfg.Export.Prefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr *core.Error
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid port - zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "invalid port - too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Backtest.BaseURL = "" },
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.Backtest.BaseURL = "/api" },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Backtest.Timeout = 0 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "zero upload limit",
			mutate:  func(c *Config) { c.Upload.MaxBytes = 0 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "scale too high",
			mutate:  func(c *Config) { c.Export.Scale = 8 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "empty prefix",
			mutate:  func(c *Config) { c.Export.Prefix = "" },
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "no sessions",
			mutate:  func(c *Config) { c.Session.MaxSessions = 0 },
			wantErr: core.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %s, got %v", tt.wantErr.Code, err)
			}
		})
	}
}
