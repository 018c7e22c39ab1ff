package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ShayCichocki/pix/internal/config"
)

// invocation is a parsed command line.
type invocation struct {
	flags *pflag.FlagSet

	configFile string
	command    string
	record     string
	showConfig string
	history    int
	plain      bool
	version    bool
	help       bool

	forwarded []string
}

const defaultHistoryRows = 10

func newFlagSet(name string) (*pflag.FlagSet, *invocation) {
	inv := &invocation{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard)

	fs.StringVar(&inv.configFile, "pix-config", "", "read this config file after the default ones")
	fs.StringVar(&inv.command, "pix-command", "", "program to wrap instead of the first argument")
	fs.StringVar(&inv.record, "pix-record", "", "record the raw output to this file (.zst to compress)")
	fs.StringVar(&inv.showConfig, "pix-show-config", "", "print the effective configuration (toml or yaml) and exit")
	fs.Lookup("pix-show-config").NoOptDefVal = config.FormatTOML
	fs.IntVar(&inv.history, "pix-history", defaultHistoryRows, "list the latest runs and exit")
	fs.Lookup("pix-history").NoOptDefVal = fmt.Sprint(defaultHistoryRows)
	fs.BoolVar(&inv.plain, "pix-plain", false, "never draw the live display")
	fs.BoolVar(&inv.version, "pix-version", false, "print the version and exit")
	fs.BoolVar(&inv.help, "pix-help", false, "show this help")

	config.RegisterFlags(fs)

	inv.flags = fs
	return fs, inv
}

// parseArgs separates the --pix- flags from the arguments of the wrapped
// program. A flag that takes a value may be written as "--pix-x v" or
// "--pix-x=v". Everything after "--" is forwarded.
func parseArgs(name string, args []string) (*invocation, error) {
	fs, inv := newFlagSet(name)

	var own []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			inv.forwarded = append(inv.forwarded, args[i:]...)
			break
		}
		if !strings.HasPrefix(arg, "--"+config.FlagPrefix) {
			inv.forwarded = append(inv.forwarded, arg)
			continue
		}

		own = append(own, arg)
		flagName, _, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		f := fs.Lookup(flagName)
		if hasValue || f == nil || f.NoOptDefVal != "" {
			continue
		}
		if i+1 < len(args) {
			i++
			own = append(own, args[i])
		}
	}

	if err := fs.Parse(own); err != nil {
		return nil, err
	}
	return inv, nil
}
