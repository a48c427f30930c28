// Package config resolves pm settings from defaults, a TOML file and the
// environment. Command-line flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"pm/internal/models"
	"pm/internal/util"
)

// Defaults.
const (
	DefaultDirName    = ".pm"
	DefaultDBFile     = "tasks.db"
	DefaultConfigFile = "config.toml"
	DefaultLogLevel   = "warn"
	DefaultOutput     = "table"
	DefaultTimeFormat = "relative"
	DefaultColor      = "auto"
)

// Accepted values for the enumerated settings.
var (
	LogLevels   = []string{"debug", "info", "warn", "error"}
	Outputs     = []string{"table", "plain", "json", "yaml"}
	TimeFormats = []string{"relative", "absolute"}
	ColorModes  = []string{"auto", "always", "never"}
)

// Config holds every user-tunable setting.
type Config struct {
	DBPath     string `toml:"db_path"`
	LogLevel   string `toml:"log_level"`
	Output     string `toml:"output"`
	TimeFormat string `toml:"time_format"`
	Color      string `toml:"color"`

	// File is the config file that was read, empty when none existed.
	File string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DBPath:     DefaultDBPath(),
		LogLevel:   DefaultLogLevel,
		Output:     DefaultOutput,
		TimeFormat: DefaultTimeFormat,
		Color:      DefaultColor,
	}
}

// DefaultDBPath is ~/.pm/tasks.db.
func DefaultDBPath() string {
	return filepath.Join(util.HomeDir(), DefaultDirName, DefaultDBFile)
}

// DefaultConfigPath is ~/.pm/config.toml, overridable with PM_CONFIG.
func DefaultConfigPath() string {
	return util.EnvOrDefault("PM_CONFIG", filepath.Join(util.HomeDir(), DefaultDirName, DefaultConfigFile))
}

// Load resolves configuration in priority order:
// 1. Defaults
// 2. TOML file at path (DefaultConfigPath when empty); a missing file is skipped
// 3. Environment variables
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath()
	}
	path = util.ExpandHome(path)
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.loadFromEnv()

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("%w: config file %s: %w", models.ErrValidation, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: config file %s: unknown key %q", models.ErrValidation, path, undecoded[0].String())
	}
	c.File = path
	return nil
}

func (c *Config) loadFromEnv() {
	c.DBPath = util.EnvOrDefault("PM_DB_PATH", c.DBPath)
	c.LogLevel = util.EnvOrDefault("PM_LOG_LEVEL", c.LogLevel)
	c.Output = util.EnvOrDefault("PM_OUTPUT", c.Output)
	c.TimeFormat = util.EnvOrDefault("PM_TIME_FORMAT", c.TimeFormat)
	c.Color = util.EnvOrDefault("PM_COLOR", c.Color)
}

// Finalize normalizes values and validates the enumerated settings. It is
// called again after flags are applied.
func (c *Config) Finalize() error {
	c.DBPath = util.ExpandHome(strings.TrimSpace(c.DBPath))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Output = strings.ToLower(strings.TrimSpace(c.Output))
	c.TimeFormat = strings.ToLower(strings.TrimSpace(c.TimeFormat))
	c.Color = strings.ToLower(strings.TrimSpace(c.Color))

	if c.DBPath == "" {
		return fmt.Errorf("%w: database path must not be empty", models.ErrValidation)
	}
	if err := oneOf("log level", c.LogLevel, LogLevels); err != nil {
		return err
	}
	if err := oneOf("output format", c.Output, Outputs); err != nil {
		return err
	}
	if err := oneOf("time format", c.TimeFormat, TimeFormats); err != nil {
		return err
	}
	return oneOf("color mode", c.Color, ColorModes)
}

func oneOf(name, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%w: unknown %s %q (use %s)", models.ErrValidation, name, value, strings.Join(allowed, ", "))
}
