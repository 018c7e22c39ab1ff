package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Output formats of Marshal.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Settings returns the configuration keyed the way config files spell it.
func (c *Config) Settings() map[string]any {
	return map[string]any{
		"debug":     c.Debug,
		"strict":    c.Strict,
		"debug-log": c.DebugLog,
		"summary": map[string]any{
			"download": c.Summary.Download,
		},
		"log-history": map[string]any{
			"size":         c.LogHistory.Size,
			"failure-size": c.LogHistory.FailureSize,
		},
		"log-window": map[string]any{
			"size": c.LogWindow.Size,
		},
		"download": map[string]any{
			"threshold": c.Download.Threshold.String(),
		},
		"tui": map[string]any{
			"refresh-rate": c.TUI.RefreshRate.String(),
		},
		"history": map[string]any{
			"enabled": c.History.Enabled,
			"path":    c.History.Path,
		},
	}
}

// Marshal renders the configuration as TOML or YAML. The output loads
// back to the same configuration.
func (c *Config) Marshal(format string) ([]byte, error) {
	switch format {
	case "", FormatTOML:
		return toml.Marshal(c.Settings())
	case FormatYAML:
		return yaml.Marshal(c.Settings())
	}
	return nil, fmt.Errorf("unknown config format %q (want %s or %s)", format, FormatTOML, FormatYAML)
}
