// Package cli builds the command line of the pix binaries. Each binary is
// a Mode; the generic one takes the wrapped program as its first argument.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/pix/internal/wrapper"
)

// Mode describes one pix binary.
type Mode struct {
	// Name is the binary name.
	Name string
	// Program is the wrapped program. Empty means it is taken from the
	// arguments.
	Program string
}

var (
	ModePix          = Mode{Name: "pix"}
	ModePinix        = Mode{Name: "pinix", Program: "nix"}
	ModePixosRebuild = Mode{Name: "pixos-rebuild", Program: "nixos-rebuild"}
)

// App runs a Mode against a set of standard streams.
type App struct {
	Mode   Mode
	Runner wrapper.Runner
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewApp creates an App wired to the process streams.
func NewApp(m Mode) *App {
	return &App{
		Mode:   m,
		Runner: wrapper.NewRunner(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Command returns the cobra command of the App. Flag parsing is done by
// the App itself since everything that is not a --pix- flag belongs to the
// wrapped program.
func (a *App) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:                a.usageLine(),
		Short:              a.short(),
		Long:               a.long(),
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args)
		},
	}
	cmd.SetIn(a.Stdin)
	cmd.SetOut(a.Stdout)
	cmd.SetErr(a.Stderr)
	return cmd
}

// Execute runs the App with args and returns the process exit code.
func (a *App) Execute(ctx context.Context, args []string) int {
	cmd := a.Command()
	// cobra reads os.Args when args is nil.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	return a.exitCode(cmd.ExecuteContext(ctx))
}

func (a *App) exitCode(err error) int {
	if err == nil {
		return 0
	}

	printError(a.Stderr, err)

	var exit *wrapper.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return 1
}

func (a *App) usageLine() string {
	if a.Mode.Program == "" {
		return a.Mode.Name + " [--pix-flags] [program] [args...]"
	}
	return a.Mode.Name + " [--pix-flags] [" + a.Mode.Program + " args...]"
}

func (a *App) short() string {
	if a.Mode.Program == "" {
		return "Render the progress of a nix command"
	}
	return fmt.Sprintf("Run %s and render its progress", a.Mode.Program)
}

func (a *App) long() string {
	return a.short() + `.

All --pix- flags are read by pix; every other argument is passed through
to the wrapped program, which is run with its structured log enabled.
The log is drawn as live progress bars on the terminal and a summary
line is printed for every finished build and download.

Without a program and with a piped stdin, pix renders a log read from
stdin.

Configuration is read from ~/.config/pix/config.toml, a .pix.toml in the
working directory or a parent, PIX_* environment variables and flags.`
}

// printError prints an error line to w in red.
func printError(w io.Writer, err error) {
	c := color.New(color.FgRed)
	fmt.Fprintf(w, "%s %v\n", c.Sprint("error:"), err)
}
