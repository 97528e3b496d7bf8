package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escl-tools/airscan/pkg/discovery"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "output.jpg", cfg.Output)
	assert.Equal(t, discovery.BrowseTimeout, cfg.Timeout)
	assert.Equal(t, discovery.ServiceTypeUScan, cfg.Service)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.HTTPTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
url: http://192.168.1.20/eSCL/
output: /tmp/scan.pdf
timeout: 3s
service: _scanner._tcp
http_timeout: 1m
log_level: debug
color_mode: Grayscale8
resolution: 300
`)

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, "http://192.168.1.20/eSCL/", cfg.URL)
	assert.Equal(t, "/tmp/scan.pdf", cfg.Output)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, discovery.ServiceTypeScanner, cfg.Service)
	assert.Equal(t, time.Minute, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "Grayscale8", cfg.ColorMode)
	assert.Equal(t, 300, cfg.Resolution)
}

func TestLoadFileKeepsUnsetDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.LoadFile(writeFile(t, "resolution: 150\n")))
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, 150, cfg.Resolution)

	cfg = Default()
	require.NoError(t, cfg.LoadFile(writeFile(t, "")))
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.LoadFile(writeFile(t, "colour_mode: RGB24\n")), "unknown key")
	assert.Error(t, cfg.LoadFile(writeFile(t, "timeout: soon\n")))
	assert.ErrorIs(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")), os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("AIRSCAN_URL", "http://10.0.0.9/eSCL/")
	t.Setenv("AIRSCAN_TIMEOUT", "5s")
	t.Setenv("AIRSCAN_RESOLUTION", "600")
	t.Setenv("AIRSCAN_LOG_LEVEL", "warn")

	cfg := Default()
	cfg.Output = "from-file.jpg"
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "http://10.0.0.9/eSCL/", cfg.URL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 600, cfg.Resolution)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
	assert.Equal(t, "from-file.jpg", cfg.Output)
}

func TestApplyEnvNothingSet(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnvInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"non-numeric resolution", "AIRSCAN_RESOLUTION", "high"},
		{"timeout without unit", "AIRSCAN_TIMEOUT", "3"},
		{"garbled http timeout", "AIRSCAN_HTTP_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := Default()
			assert.Error(t, cfg.ApplyEnv())
		})
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv("AIRSCAN_RESOLUTION", "high")
	_, err := Load(writeFile(t, "output: scan.jpg\n"))
	assert.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "output: file.jpg\nresolution: 150\n")
	t.Setenv("AIRSCAN_RESOLUTION", "300")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file.jpg", cfg.Output)
	assert.Equal(t, 300, cfg.Resolution)
}

func TestLoadWithoutDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty output", func(c *Config) { c.Output = "" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"negative http timeout", func(c *Config) { c.HTTPTimeout = -time.Second }},
		{"negative resolution", func(c *Config) { c.Resolution = -1 }},
		{"unknown level", func(c *Config) { c.LogLevel = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "": slog.LevelInfo,
		"warn": slog.LevelWarn, "warning": slog.LevelWarn, "error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}
