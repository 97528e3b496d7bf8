// Package config holds the airscan settings and loads them from defaults, an
// optional YAML file and AIRSCAN_* environment variables. Command-line flags
// are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/escl-tools/airscan/pkg/discovery"
)

// Defaults.
const (
	DefaultOutput   = "output.jpg"
	DefaultLogLevel = "info"
)

// Config is the complete set of settings of one invocation.
type Config struct {
	// URL is the scanner endpoint override. ENV: AIRSCAN_URL
	URL string `yaml:"url" env:"AIRSCAN_URL"`

	// Output is the target file. ENV: AIRSCAN_OUTPUT
	Output string `yaml:"output" env:"AIRSCAN_OUTPUT"`

	// Timeout bounds the mDNS browse. ENV: AIRSCAN_TIMEOUT (Go duration, e.g. "3s")
	Timeout time.Duration `yaml:"timeout" env:"AIRSCAN_TIMEOUT"`

	// Service is the DNS-SD service type to browse. ENV: AIRSCAN_SERVICE
	Service string `yaml:"service" env:"AIRSCAN_SERVICE"`

	// Interface restricts browsing to one network interface. ENV: AIRSCAN_INTERFACE
	Interface string `yaml:"interface" env:"AIRSCAN_INTERFACE"`

	// HTTPTimeout bounds each HTTP exchange; 0 means no limit. ENV: AIRSCAN_HTTP_TIMEOUT (Go duration)
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"AIRSCAN_HTTP_TIMEOUT"`

	// LogLevel is one of debug, info, warn, error. ENV: AIRSCAN_LOG_LEVEL
	LogLevel string `yaml:"log_level" env:"AIRSCAN_LOG_LEVEL"`

	// ColorMode overrides the scanner's color mode. ENV: AIRSCAN_COLOR_MODE
	ColorMode string `yaml:"color_mode" env:"AIRSCAN_COLOR_MODE"`

	// Resolution overrides the scan resolution in DPI. ENV: AIRSCAN_RESOLUTION
	Resolution int `yaml:"resolution" env:"AIRSCAN_RESOLUTION"`

	// ProtocolLog is a file receiving the CBOR protocol capture. ENV: AIRSCAN_PROTOCOL_LOG
	ProtocolLog string `yaml:"protocol_log" env:"AIRSCAN_PROTOCOL_LOG"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Output:   DefaultOutput,
		Timeout:  discovery.BrowseTimeout,
		Service:  discovery.DefaultServiceType,
		LogLevel: DefaultLogLevel,
	}
}

// DefaultFile returns the per-user config file location, or "" when the
// user config directory is unknown.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "airscan", "config.yaml")
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment. With an empty path the default file is read when it exists.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile()
	}
	if path != "" {
		err := cfg.LoadFile(path)
		if err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile overlays the settings present in the YAML file at path. Unknown
// keys are rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the AIRSCAN_* variables that are set. A value that does
// not parse is an error. Durations use Go syntax, e.g. "3s".
func (c *Config) ApplyEnv() error {
	// StrictDecode reports "no variable set" as ErrInvalidTarget; c is
	// always a valid target.
	err := envdecode.StrictDecode(c)
	if err != nil && !errors.Is(err, envdecode.ErrInvalidTarget) {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	var errs []error
	if c.Output == "" {
		errs = append(errs, errors.New("output path is empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("discovery timeout must be positive, got %s", c.Timeout))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("http timeout must not be negative, got %s", c.HTTPTimeout))
	}
	if c.Resolution < 0 {
		errs = append(errs, fmt.Errorf("resolution must not be negative, got %d", c.Resolution))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level returns the slog level of LogLevel, falling back to info.
func (c Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
