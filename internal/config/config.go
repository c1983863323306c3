// Package config holds all uvman configuration: execution timeouts and retry
// bounds, the cache layout, and the log file location. Values come from
// defaults, an optional YAML file, and environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvLogFile    = "UVMAN_LOG_FILE"
	EnvCacheDir   = "UVMAN_CACHE_DIR"
	EnvTimeout    = "UVMAN_TIMEOUT"
	EnvRetries    = "UVMAN_RETRIES"
	EnvRetryDelay = "UVMAN_RETRY_DELAY"
)

// Config is the explicit context object passed to every component at
// startup. There is no ambient package-level state.
type Config struct {
	// CommandTimeout bounds a single attempt of an ordinary uv command.
	CommandTimeout time.Duration

	// InstallTimeout bounds dependency installs, which are expected to be
	// slower than typical commands.
	InstallTimeout time.Duration

	// ProbeTimeout bounds the venv python --version verification probe.
	ProbeTimeout time.Duration

	// MaxRetries is the hard ceiling on attempts per command. Never
	// less than 1.
	MaxRetries int

	// RetryDelay is the fixed sleep between consecutive attempts.
	RetryDelay time.Duration

	// CacheDir is the cache root. Its "downloads" subdirectory is part of
	// the managed layout.
	CacheDir string

	// LogFile is the append-only structured log location.
	LogFile string
}

// fileConfig mirrors Config for YAML decoding. Durations are strings so the
// file stays human-editable ("5m", "10s").
type fileConfig struct {
	CommandTimeout string `yaml:"command_timeout"`
	InstallTimeout string `yaml:"install_timeout"`
	ProbeTimeout   string `yaml:"probe_timeout"`
	MaxRetries     *int   `yaml:"max_retries"`
	RetryDelay     string `yaml:"retry_delay"`
	CacheDir       string `yaml:"cache_dir"`
	LogFile        string `yaml:"log_file"`
}

// Default returns the stock configuration rooted under the user's home
// directory. When the home directory cannot be resolved the paths fall back
// to the working directory.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		CommandTimeout: 5 * time.Minute,
		InstallTimeout: 10 * time.Minute,
		ProbeTimeout:   10 * time.Second,
		MaxRetries:     3,
		RetryDelay:     5 * time.Second,
		CacheDir:       filepath.Join(home, ".uvman", "cache"),
		LogFile:        filepath.Join(home, ".uvman", "logs", "uvman.log"),
	}
}

// Load merges the YAML file at path over the defaults. A missing file is not
// an error; the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := mergeDuration(&cfg.CommandTimeout, raw.CommandTimeout, "command_timeout"); err != nil {
		return Config{}, err
	}
	if err := mergeDuration(&cfg.InstallTimeout, raw.InstallTimeout, "install_timeout"); err != nil {
		return Config{}, err
	}
	if err := mergeDuration(&cfg.ProbeTimeout, raw.ProbeTimeout, "probe_timeout"); err != nil {
		return Config{}, err
	}
	if err := mergeDuration(&cfg.RetryDelay, raw.RetryDelay, "retry_delay"); err != nil {
		return Config{}, err
	}
	if raw.MaxRetries != nil {
		cfg.MaxRetries = *raw.MaxRetries
	}
	if raw.CacheDir != "" {
		cfg.CacheDir = raw.CacheDir
	}
	if raw.LogFile != "" {
		cfg.LogFile = raw.LogFile
	}

	cfg.normalize()
	return cfg, nil
}

// ApplyEnv overrides individual fields from the process environment.
// Malformed values are ignored rather than fatal.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.CommandTimeout = d
		}
	}
	if v := os.Getenv(EnvRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv(EnvRetryDelay); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.RetryDelay = d
		}
	}
	c.normalize()
}

func (c *Config) normalize() {
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 5 * time.Minute
	}
	if c.InstallTimeout <= 0 {
		c.InstallTimeout = 10 * time.Minute
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 10 * time.Second
	}
}

func mergeDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", field, err)
	}
	*dst = d
	return nil
}
