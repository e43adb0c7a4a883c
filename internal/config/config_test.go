// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFrom_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, Default().DefaultModel, cfg.DefaultModel)

	data, err := os.ReadFile(path)
	require.NoError(t, err, "config file should be written on first run")
	assert.Contains(t, string(data), "default_model")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadFrom_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "default_model = \"claude3\"\nrequest_timeout_secs = 10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "claude3", cfg.DefaultModel)
	assert.Equal(t, 10, cfg.RequestTimeoutSecs)
	// Unset keys fall back to defaults.
	assert.Equal(t, Default().BaseURL, cfg.BaseURL)
}

func TestLoadFrom_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("default_model = [unterminated"), 0o600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DUCKCHAT_MODEL", "mixtral")
	t.Setenv("DUCKCHAT_BASE_URL", "http://localhost:9999")
	t.Setenv("DUCKCHAT_TIMEOUT_SECS", "5")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "mixtral", cfg.DefaultModel)
	assert.Equal(t, "http://localhost:9999", cfg.BaseURL)
	assert.Equal(t, 5, cfg.RequestTimeoutSecs)
}

func TestApplyEnvOverrides_IgnoresBadTimeout(t *testing.T) {
	t.Setenv("DUCKCHAT_TIMEOUT_SECS", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, Default().RequestTimeoutSecs, cfg.RequestTimeoutSecs)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DefaultModel = "not-a-model"
	assert.Error(t, cfg.Validate(), "unknown default_model should fail")

	cfg = Default()
	cfg.BaseURL = "ftp://wrong"
	assert.Error(t, cfg.Validate(), "non-http base_url should fail")

	cfg = Default()
	cfg.RequestTimeoutSecs = 0
	assert.Error(t, cfg.Validate(), "zero timeout should fail")
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("default_model", "llama3"))
	got, err := cfg.Get("default_model")
	require.NoError(t, err)
	assert.Equal(t, "llama3", got)

	assert.Error(t, cfg.Set("default_model", "gibberish"), "value failing validation should be rejected")
	assert.Error(t, cfg.Set("no_such_key", "x"))
	_, err = cfg.Get("no_such_key")
	assert.Error(t, err)
}

func TestSaveTo_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.DefaultModel = "claude3"
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "claude3", loaded.DefaultModel)
}
