// Package config handles configuration loading for pix.
// It supports XDG config paths, project-level overrides, environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. PIX_LOG_WINDOW_SIZE.
	EnvPrefix = "PIX"

	userConfigName    = "config.toml"
	projectConfigName = ".pix.toml"
)

// ByteSize is a size in bytes. In files and flags it may be written as a
// plain number or with a unit ("10 MiB").
type ByteSize uint64

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Config holds all configuration for pix.
type Config struct {
	Debug      bool             `mapstructure:"debug"`
	Strict     bool             `mapstructure:"strict"`
	DebugLog   string           `mapstructure:"debug-log"`
	Summary    SummaryConfig    `mapstructure:"summary"`
	LogHistory LogHistoryConfig `mapstructure:"log-history"`
	LogWindow  LogWindowConfig  `mapstructure:"log-window"`
	Download   DownloadConfig   `mapstructure:"download"`
	TUI        TUIConfig        `mapstructure:"tui"`
	History    HistoryConfig    `mapstructure:"history"`
}

// SummaryConfig selects which summary lines are printed.
type SummaryConfig struct {
	Download bool `mapstructure:"download"`
}

// LogHistoryConfig bounds the build log printed when a build stops.
// Zero means unbounded.
type LogHistoryConfig struct {
	Size        int `mapstructure:"size"`
	FailureSize int `mapstructure:"failure-size"`
}

// LogWindowConfig sizes the live log window under a build group.
type LogWindowConfig struct {
	Size int `mapstructure:"size"`
}

// DownloadConfig holds download display settings.
type DownloadConfig struct {
	// Threshold is the smallest transfer that gets its own bar.
	Threshold ByteSize `mapstructure:"threshold"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh-rate"`
}

// HistoryConfig controls the run history store.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Options tell Load where to look beyond the default locations.
type Options struct {
	// File is an explicit config file. It must exist.
	File string
	// WorkDir is where the project file search starts. Defaults to the
	// current directory.
	WorkDir string
	// Flags holds the flags registered by RegisterFlags. Only flags that
	// were set override.
	Flags *pflag.FlagSet
}

// Load builds the effective configuration.
// Precedence (highest to lowest):
// 1. Command-line flags that were set
// 2. Environment variables (PIX_*)
// 3. Explicit config file
// 4. Project config (.pix.toml in the working directory or a parent)
// 5. User config (~/.config/pix/config.toml)
// 6. Built-in defaults
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(filepath.Join(getUserConfigDir(), userConfigName))
	if err := v.ReadInConfig(); err != nil && !notFound(err) {
		return nil, fmt.Errorf("reading user config: %w", err)
	}

	if project := findProjectConfig(opts.WorkDir); project != "" {
		if err := mergeFile(v, project); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	if opts.File != "" {
		if err := mergeFile(v, opts.File); err != nil {
			return nil, fmt.Errorf("merging config %s: %w", opts.File, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := bindFlags(v, opts.Flags); err != nil {
		return nil, err
	}

	return decode(v)
}

// LoadFromPath loads defaults plus a single file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToByteSize,
	))
	if err := v.UnmarshalExact(cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.DebugLog = expandPath(cfg.DebugLog)
	cfg.History.Path = expandPath(cfg.History.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(v *viper.Viper, path string) error {
	fv := viper.New()
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(fv.AllSettings())
}

func notFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

var byteSizeType = reflect.TypeOf(ByteSize(0))

func stringToByteSize(from, to reflect.Type, data any) (any, error) {
	if to != byteSizeType || from.Kind() != reflect.String {
		return data, nil
	}
	n, err := humanize.ParseBytes(data.(string))
	if err != nil {
		return nil, fmt.Errorf("invalid size %q: %w", data, err)
	}
	return ByteSize(n), nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch {
	case c.LogHistory.Size < 0:
		return fmt.Errorf("log-history.size must not be negative, got %d", c.LogHistory.Size)
	case c.LogHistory.FailureSize < 0:
		return fmt.Errorf("log-history.failure-size must not be negative, got %d", c.LogHistory.FailureSize)
	case c.LogWindow.Size < 0:
		return fmt.Errorf("log-window.size must not be negative, got %d", c.LogWindow.Size)
	case c.TUI.RefreshRate <= 0:
		return fmt.Errorf("tui.refresh-rate must be positive, got %v", c.TUI.RefreshRate)
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), userConfigName)
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig("")
}

// DefaultHistoryPath returns where the run history is kept by default.
func DefaultHistoryPath() string {
	return filepath.Join(getDataDir(), "history.db")
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("debug", d.Debug)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("debug-log", d.DebugLog)

	v.SetDefault("summary.download", d.Summary.Download)

	v.SetDefault("log-history.size", d.LogHistory.Size)
	v.SetDefault("log-history.failure-size", d.LogHistory.FailureSize)
	v.SetDefault("log-window.size", d.LogWindow.Size)

	v.SetDefault("download.threshold", uint64(d.Download.Threshold))

	v.SetDefault("tui.refresh-rate", d.TUI.RefreshRate.String())

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
}

// getUserConfigDir returns the XDG config directory for pix.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "pix")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "pix")
	}
	return filepath.Join(home, ".config", "pix")
}

// getDataDir returns the XDG data directory for pix.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "pix")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "pix")
	}
	return filepath.Join(home, ".local", "share", "pix")
}

// findProjectConfig searches for .pix.toml in dir and its parents.
func findProjectConfig(dir string) string {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, projectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandPath expands ${VAR} references and a leading ~/.
func expandPath(s string) string {
	s = os.ExpandEnv(s)
	if rest, ok := strings.CutPrefix(s, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return s
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LogHistory: LogHistoryConfig{
			Size:        1000,
			FailureSize: 1000,
		},
		LogWindow: LogWindowConfig{
			Size: 10,
		},
		Download: DownloadConfig{
			Threshold: 10 * humanize.MiByte,
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
		History: HistoryConfig{
			Path: DefaultHistoryPath(),
		},
	}
}
