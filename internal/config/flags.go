package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FlagPrefix marks the flags pix consumes itself; everything else is
// forwarded to the wrapped program.
const FlagPrefix = "pix-"

// flagKeys maps each config flag to the key it overrides.
var flagKeys = []struct {
	flag, key string
}{
	{"pix-debug", "debug"},
	{"pix-strict", "strict"},
	{"pix-debug-log", "debug-log"},
	{"pix-summary-download", "summary.download"},
	{"pix-log-history", "log-history.size"},
	{"pix-log-history-failure", "log-history.failure-size"},
	{"pix-log-window", "log-window.size"},
	{"pix-download-threshold", "download.threshold"},
	{"pix-refresh-rate", "tui.refresh-rate"},
	{"pix-save-history", "history.enabled"},
	{"pix-history-path", "history.path"},
}

// RegisterFlags adds the flags that override config keys to fs. Their
// defaults are only for help output; Load ignores flags that were not set.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.Bool("pix-debug", d.Debug, "show the debug gauge")
	fs.Bool("pix-strict", d.Strict, "abort on the first undecodable log line")
	fs.String("pix-debug-log", d.DebugLog, "write a debug log to this file")
	fs.Bool("pix-summary-download", d.Summary.Download, "print a line for every finished download")
	fs.Int("pix-log-history", d.LogHistory.Size, "build log lines printed when a build stops (0 = all)")
	fs.Int("pix-log-history-failure", d.LogHistory.FailureSize, "build log lines printed when a build fails (0 = all)")
	fs.Int("pix-log-window", d.LogWindow.Size, "lines of the live build log window (0 = none)")
	fs.String("pix-download-threshold", d.Download.Threshold.String(), "smallest download that gets its own bar")
	fs.Duration("pix-refresh-rate", d.TUI.RefreshRate, "redraw interval of the live display")
	fs.Bool("pix-save-history", d.History.Enabled, "store a summary of this run")
	fs.String("pix-history-path", d.History.Path, "run history database")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for _, fk := range flagKeys {
		f := fs.Lookup(fk.flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(fk.key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", fk.flag, err)
		}
	}
	return nil
}
