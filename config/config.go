// Package config loads application settings from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"krscreener/auth"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr            string `yaml:"addr"`
		ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
		WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	} `yaml:"server"`
	Auth struct {
		PasswordHash string `yaml:"password_hash"`
	} `yaml:"auth"`
	Screener struct {
		FetchDelayMs int     `yaml:"fetch_delay_ms"`
		GapThreshold float64 `yaml:"gap_threshold"`
		VolumeRatio  float64 `yaml:"volume_ratio"`
	} `yaml:"screener"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("KRSCREENER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("KRSCREENER_PASSWORD_HASH"); v != "" {
		cfg.Auth.PasswordHash = v
	}
	if v := os.Getenv("KRSCREENER_FETCH_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Screener.FetchDelayMs = ms
		}
	}
	if v := os.Getenv("KRSCREENER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("KRSCREENER_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8501"
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 60
	}
	if c.Auth.PasswordHash == "" {
		c.Auth.PasswordHash = auth.DefaultHash
	}
	if c.Screener.FetchDelayMs == 0 {
		c.Screener.FetchDelayMs = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 20
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 14
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Screener.FetchDelayMs < 0 {
		return fmt.Errorf("screener.fetch_delay_ms must not be negative")
	}
	if c.Screener.GapThreshold < 0 {
		return fmt.Errorf("screener.gap_threshold must not be negative")
	}
	if c.Screener.VolumeRatio < 0 {
		return fmt.Errorf("screener.volume_ratio must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug/info/warn/error", c.Log.Level)
	}
	return nil
}

// FetchDelay returns the inter-symbol pause as a duration.
func (c *Config) FetchDelay() time.Duration {
	return time.Duration(c.Screener.FetchDelayMs) * time.Millisecond
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSec) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSec) * time.Second
}
