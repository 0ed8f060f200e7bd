// Package config handles configuration loading and validation for hotkeyd.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"hotkeyd/internal/gesture"
	"hotkeyd/internal/keybind"
	"hotkeyd/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// Config is the complete hotkeyd configuration.
type Config struct {
	Version int           `toml:"version" json:"version" yaml:"version"`
	Hotkey  HotkeyConfig  `toml:"hotkey" json:"hotkey" yaml:"hotkey"`
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
	Store   StoreConfig   `toml:"store" json:"store" yaml:"store"`
}

// HotkeyConfig selects the binding and tunes gesture timing.
type HotkeyConfig struct {
	// Binding is "fn" or a combination such as "ctrl+option+space". An empty
	// binding defers to whatever the store holds.
	Binding           string `toml:"binding" json:"binding" yaml:"binding"`
	HoldThresholdMs   int    `toml:"hold_threshold_ms" json:"hold_threshold_ms" yaml:"hold_threshold_ms"`
	DoubleTapWindowMs int    `toml:"double_tap_window_ms" json:"double_tap_window_ms" yaml:"double_tap_window_ms"`

	// PreferPortal uses the desktop portal even outside a Wayland session.
	PreferPortal bool `toml:"prefer_portal" json:"prefer_portal" yaml:"prefer_portal"`
}

// LoggingConfig mirrors logging.Config in file form.
type LoggingConfig struct {
	Level      string `toml:"level" json:"level" yaml:"level"`
	Format     string `toml:"format" json:"format" yaml:"format"`
	Output     string `toml:"output" json:"output" yaml:"output"`
	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	Compress   bool   `toml:"compress" json:"compress" yaml:"compress"`
}

// StoreConfig locates the binding database.
type StoreConfig struct {
	Path string `toml:"path" json:"path" yaml:"path"`
}

// HotkeydDir returns the directory holding hotkeyd's data.
func HotkeydDir() string {
	if dir := os.Getenv("HOTKEYD_DATA_DIR"); dir != "" {
		return dir
	}
	return PlatformDataDir()
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// DefaultConfig returns a configuration with every field set.
func DefaultConfig() *Config {
	timing := gesture.DefaultTiming()
	return &Config{
		Version: Version,
		Hotkey: HotkeyConfig{
			HoldThresholdMs:   int(timing.HoldThreshold / time.Millisecond),
			DoubleTapWindowMs: int(timing.DoubleTapWindow / time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   logging.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
		Store: StoreConfig{
			Path: filepath.Join(HotkeydDir(), "bindings.db"),
		},
	}
}

// Load reads the configuration at path, falling back to defaults when the
// file does not exist. An empty path means ConfigPath().
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies HOTKEYD_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("HOTKEYD_BINDING"); v != "" {
		c.Hotkey.Binding = v
	}
	if v := os.Getenv("HOTKEYD_HOLD_THRESHOLD_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Hotkey.HoldThresholdMs = n
		}
	}
	if v := os.Getenv("HOTKEYD_DOUBLE_TAP_WINDOW_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Hotkey.DoubleTapWindowMs = n
		}
	}
	if v := os.Getenv("HOTKEYD_PREFER_PORTAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Hotkey.PreferPortal = b
		}
	}
	if v := os.Getenv("HOTKEYD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HOTKEYD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("HOTKEYD_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("HOTKEYD_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Timing converts the millisecond settings into classifier timing.
func (h HotkeyConfig) Timing() gesture.Timing {
	return gesture.Timing{
		HoldThreshold:   time.Duration(h.HoldThresholdMs) * time.Millisecond,
		DoubleTapWindow: time.Duration(h.DoubleTapWindowMs) * time.Millisecond,
	}.Normalize()
}

// ParsedBinding parses Binding. ok is false when no binding is configured.
func (h HotkeyConfig) ParsedBinding() (b keybind.Binding, ok bool, err error) {
	if strings.TrimSpace(h.Binding) == "" {
		return keybind.Binding{}, false, nil
	}
	b, err = keybind.ParseBinding(h.Binding)
	if err != nil {
		return keybind.Binding{}, false, err
	}
	return b, true, nil
}

// ToLogging builds the logging package configuration.
func (l LoggingConfig) ToLogging() (*logging.Config, error) {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(l.Format)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	if l.Output != "" {
		cfg.Output = l.Output
	}
	if l.FilePath != "" {
		cfg.FilePath = expandPath(l.FilePath)
	}
	if l.MaxSizeMB > 0 {
		cfg.MaxSize = int64(l.MaxSizeMB)
	}
	if l.MaxBackups > 0 {
		cfg.MaxBackups = l.MaxBackups
	}
	cfg.Compress = l.Compress
	return cfg, nil
}

// loadConfigFromFile reads a config file, validating the raw document
// against the schema before decoding it over the defaults.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	format := formatForPath(path)
	if err := validateDocument(data, format); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := decode(data, format, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}

func decode(data []byte, format string, v any) error {
	switch format {
	case "json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), v); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
