// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists duckchat configuration from
// ~/.duckchat/config.toml, with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/duckchat/internal/model"
	"github.com/jeranaias/duckchat/internal/util"
)

const (
	appDirName     = ".duckchat"
	configFileName = "config.toml"
	sessionsDir    = "sessions"

	envModel       = "DUCKCHAT_MODEL"
	envBaseURL     = "DUCKCHAT_BASE_URL"
	envUserAgent   = "DUCKCHAT_USER_AGENT"
	envTimeoutSecs = "DUCKCHAT_TIMEOUT_SECS"
)

// Config holds user-tunable settings.
type Config struct {
	// DefaultModel is the short model name used when -m is not given.
	DefaultModel string `toml:"default_model"`
	// BaseURL is the chat backend. Only changed for testing.
	BaseURL string `toml:"base_url"`
	// UserAgent sent with every request.
	UserAgent string `toml:"user_agent"`
	// RequestTimeoutSecs bounds the token priming request.
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultModel:       model.Default().Name(),
		BaseURL:            "https://duckduckgo.com",
		UserAgent:          "curl/7.81.0",
		RequestTimeoutSecs: 30,
	}
}

// ConfigDir returns the application data directory (~/.duckchat).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// SessionsDir returns the directory session files live in.
func SessionsDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionsDir), nil
}

// Load reads the config file, writing defaults back on first run so the
// user has a file to edit. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads the config at an explicit path, creating it with defaults
// when missing.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if saveErr := cfg.SaveTo(path); saveErr != nil {
			// A read-only home directory is not fatal; run on defaults.
			return cfg, nil
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.fillDefaults()
	return &cfg, nil
}

// fillDefaults replaces zero values with defaults so a sparse file works.
func (c *Config) fillDefaults() {
	def := Default()
	if c.DefaultModel == "" {
		c.DefaultModel = def.DefaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.RequestTimeoutSecs <= 0 {
		c.RequestTimeoutSecs = def.RequestTimeoutSecs
	}
}

// ApplyEnvOverrides applies DUCKCHAT_* environment variables on top of the
// loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(envModel); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv(envBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(envUserAgent); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv(envTimeoutSecs); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.RequestTimeoutSecs = secs
		}
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if _, err := model.Resolve(c.DefaultModel); err != nil {
		return fmt.Errorf("invalid default_model: %w", err)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("invalid base_url %q: must start with http:// or https://", c.BaseURL)
	}
	if c.RequestTimeoutSecs <= 0 {
		return fmt.Errorf("invalid request_timeout_secs %d: must be positive", c.RequestTimeoutSecs)
	}
	return nil
}

// Save writes the config to the default location.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path with private permissions.
func (c *Config) SaveTo(path string) error {
	var sb strings.Builder
	sb.WriteString("# duckchat configuration\n")
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get returns a setting by its TOML key. Used by the config subcommand.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "default_model":
		return c.DefaultModel, nil
	case "base_url":
		return c.BaseURL, nil
	case "user_agent":
		return c.UserAgent, nil
	case "request_timeout_secs":
		return strconv.Itoa(c.RequestTimeoutSecs), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// Set updates a setting by its TOML key and validates the result.
func (c *Config) Set(key, value string) error {
	switch key {
	case "default_model":
		c.DefaultModel = value
	case "base_url":
		c.BaseURL = value
	case "user_agent":
		c.UserAgent = value
	case "request_timeout_secs":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("request_timeout_secs must be an integer: %w", err)
		}
		c.RequestTimeoutSecs = secs
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return c.Validate()
}

// Keys lists the settable config keys in display order.
func Keys() []string {
	return []string{"default_model", "base_url", "user_agent", "request_timeout_secs"}
}
