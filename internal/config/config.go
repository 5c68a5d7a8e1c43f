package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/newthinker/quantview/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Export   ExportConfig   `mapstructure:"export"`
	Session  SessionConfig  `mapstructure:"session"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	TemplatesDir string `mapstructure:"templates_dir"` // empty uses embedded templates
}

// BacktestConfig points at the remote backtest service.
type BacktestConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// UploadConfig limits reference image uploads.
type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// ExportConfig controls PNG export of the results panel.
type ExportConfig struct {
	Prefix      string `mapstructure:"prefix"`
	Scale       int    `mapstructure:"scale"`
	AllowRemote bool   `mapstructure:"allow_remote"`
}

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	MaxSessions int           `mapstructure:"max_sessions"`
	TTL         time.Duration `mapstructure:"ttl"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	// Support environment variable overrides
	v.SetEnvPrefix("QUANTVIEW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("backtest.base_url", d.Backtest.BaseURL)
	v.SetDefault("backtest.timeout", d.Backtest.Timeout)
	v.SetDefault("upload.max_bytes", d.Upload.MaxBytes)
	v.SetDefault("export.prefix", d.Export.Prefix)
	v.SetDefault("export.scale", d.Export.Scale)
	v.SetDefault("export.allow_remote", d.Export.AllowRemote)
	v.SetDefault("session.max_sessions", d.Session.MaxSessions)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Backtest: BacktestConfig{
			BaseURL: "http://127.0.0.1:8081/api",
			Timeout: 30 * time.Second,
		},
		Upload: UploadConfig{
			MaxBytes: 5 * 1024 * 1024,
		},
		Export: ExportConfig{
			Prefix:      "回测结果",
			Scale:       2,
			AllowRemote: true,
		},
		Session: SessionConfig{
			MaxSessions: 1000,
			TTL:         12 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Backtest.BaseURL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("backtest base_url is required"))
	}
	u, err := url.Parse(c.Backtest.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backtest base_url must be an absolute http(s) URL, got %q", c.Backtest.BaseURL))
	}
	if c.Backtest.Timeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backtest timeout must be positive, got %s", c.Backtest.Timeout))
	}

	if c.Upload.MaxBytes <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("upload max_bytes must be positive, got %d", c.Upload.MaxBytes))
	}

	if c.Export.Scale < 1 || c.Export.Scale > 4 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("export scale must be between 1 and 4, got %d", c.Export.Scale))
	}
	if c.Export.Prefix == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("export prefix is required"))
	}

	if c.Session.MaxSessions < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_sessions must be at least 1, got %d", c.Session.MaxSessions))
	}

	return nil
}
