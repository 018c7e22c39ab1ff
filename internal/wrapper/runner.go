package wrapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// DeterminateProfileBin is where Determinate Nix installs its binaries.
// It is outside PATH by default.
const DeterminateProfileBin = "/nix/var/nix/profiles/default/bin"

// waitDelay bounds how long a cancelled child may keep its pipes open.
const waitDelay = 5 * time.Second

// ExitError mirrors a non-zero exit status of the wrapped program.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command finished with exit code %d", e.Code)
}

// FindBinary resolves name on PATH, then in DeterminateProfileBin.
func FindBinary(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	fallback := filepath.Join(DeterminateProfileBin, name)
	if _, err := os.Stat(fallback); err == nil {
		return fallback, nil
	}

	return "", fmt.Errorf("%s not found on PATH or at %s", name, fallback)
}

// Runner starts wrapped commands. It exists so the CLI can be tested
// without spawning nix.
type Runner interface {
	// Start spawns c with the structured log flags and stdin closed.
	Start(ctx context.Context, c Command) (*Process, error)

	// RunAttached runs c unwrapped with the terminal attached and waits
	// for it.
	RunAttached(ctx context.Context, c Command) error
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// NewRunner creates a new ExecRunner.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

var _ Runner = (*ExecRunner)(nil)

// Process is a running wrapped command.
type Process struct {
	Stdout io.Reader
	Stderr io.Reader

	cmd *exec.Cmd
}

// Pid returns the process id of the child.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait waits for the child to exit. Both output readers must be drained
// first. A non-zero exit is returned as *ExitError.
func (p *Process) Wait() error {
	return exitError(p.cmd.Wait())
}

func (r *ExecRunner) Start(ctx context.Context, c Command) (*Process, error) {
	cmd, err := r.command(ctx, c, c.WrappedArgs())
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.Name, err)
	}
	return &Process{Stdout: stdout, Stderr: stderr, cmd: cmd}, nil
}

func (r *ExecRunner) RunAttached(ctx context.Context, c Command) error {
	cmd, err := r.command(ctx, c, c.UnwrappedArgs())
	if err != nil {
		return err
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.Name, err)
	}
	return exitError(cmd.Wait())
}

func (r *ExecRunner) command(ctx context.Context, c Command, args []string) (*exec.Cmd, error) {
	path, err := FindBinary(c.Name)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = waitDelay
	return cmd, nil
}

func exitError(err error) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) && ee.ExitCode() > 0 {
		return &ExitError{Code: ee.ExitCode()}
	}
	if err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	return nil
}
