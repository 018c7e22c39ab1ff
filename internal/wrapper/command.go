// Package wrapper models the programs pix wraps and runs them as child
// processes.
package wrapper

import (
	"slices"
	"strings"
)

// Program identifies a known wrapped program.
type Program int

const (
	ProgramUnknown Program = iota
	ProgramNix
	ProgramNixOSRebuild
	ProgramNixShell
	ProgramNixCollectGarbage
)

var programNames = map[string]Program{
	"nix":                 ProgramNix,
	"nixos-rebuild":       ProgramNixOSRebuild,
	"nix-shell":           ProgramNixShell,
	"nix-collect-garbage": ProgramNixCollectGarbage,
}

// ProgramOf classifies a program by name.
func ProgramOf(name string) Program {
	return programNames[name]
}

// flag is an injected flag and its values.
type flag struct {
	name   string
	values []string
}

var (
	flagPrintBuildLogs = flag{name: "--print-build-logs"}
	flagLogFormat      = flag{name: "--log-format", values: []string{"internal-json"}}
)

// requiredFlags returns the flags p needs to emit the structured log.
func (p Program) requiredFlags() []flag {
	switch p {
	case ProgramNix, ProgramNixOSRebuild:
		return []flag{flagPrintBuildLogs, flagLogFormat}
	case ProgramNixShell, ProgramNixCollectGarbage:
		return []flag{flagLogFormat}
	}
	return nil
}

// Command is a program and the arguments the user passed to it.
type Command struct {
	Program Program
	Name    string
	Args    []string
}

// NewCommand builds a Command for the program called name.
func NewCommand(name string, args ...string) Command {
	return Command{Program: ProgramOf(name), Name: name, Args: args}
}

// Parse builds a Command from a program name followed by its arguments.
// It reports false when args is empty.
func Parse(args []string) (Command, bool) {
	if len(args) == 0 {
		return Command{}, false
	}
	return NewCommand(args[0], args[1:]...), true
}

// WrappedArgs returns the arguments with the structured log flags
// prepended. Flags the user already passed are not repeated.
func (c Command) WrappedArgs() []string {
	var out []string
	for _, f := range c.Program.requiredFlags() {
		if slices.Contains(c.Args, f.name) {
			continue
		}
		out = append(out, f.name)
		out = append(out, f.values...)
	}
	return append(out, c.Args...)
}

// UnwrappedArgs returns the arguments as the user passed them.
func (c Command) UnwrappedArgs() []string {
	return slices.Clone(c.Args)
}

// IsRepl reports whether the command opens an interactive session that
// has to be run again with the terminal attached.
func (c Command) IsRepl() bool {
	switch c.Program {
	case ProgramNixShell:
		return true
	case ProgramNix:
		if len(c.Args) == 0 {
			return false
		}
		switch c.Args[0] {
		case "repl", "develop", "shell":
			return true
		}
	}
	return false
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}
