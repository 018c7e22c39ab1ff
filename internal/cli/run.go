package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ShayCichocki/pix/internal/config"
	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/handlers"
	"github.com/ShayCichocki/pix/internal/history"
	"github.com/ShayCichocki/pix/internal/logging"
	"github.com/ShayCichocki/pix/internal/session"
	"github.com/ShayCichocki/pix/internal/stream"
	"github.com/ShayCichocki/pix/internal/style"
	"github.com/ShayCichocki/pix/internal/tui"
	"github.com/ShayCichocki/pix/internal/version"
	"github.com/ShayCichocki/pix/internal/wrapper"
	"github.com/ShayCichocki/pix/pkg/models"
)

// exitInterrupted is the exit code of a run cut short by a signal.
const exitInterrupted = 130

// errNoCommand is returned when there is neither a program nor a piped
// stdin to read from.
var errNoCommand = errors.New("no program given (try --pix-help)")

func (a *App) run(cmd *cobra.Command, args []string) error {
	inv, err := parseArgs(a.Mode.Name, args)
	if err != nil {
		return err
	}

	switch {
	case inv.help:
		return cmd.Help()
	case inv.version:
		fmt.Fprintln(a.Stdout, version.Line(a.Mode.Name))
		return nil
	}

	cfg, err := config.Load(config.Options{File: inv.configFile, Flags: inv.flags})
	if err != nil {
		return err
	}

	if inv.showConfig != "" {
		out, err := cfg.Marshal(inv.showConfig)
		if err != nil {
			return err
		}
		_, err = a.Stdout.Write(out)
		return err
	}
	if inv.flags.Changed("pix-history") {
		return a.listHistory(cfg, inv.history)
	}

	logger, err := logging.New(cfg.DebugLog)
	if err != nil {
		return err
	}
	defer logger.Close()
	logging.SetDefault(logger)
	defer logging.SetDefault(nil)
	logging.Debugf("[config] %s strict=%t window=%d threshold=%s", a.Mode.Name, cfg.Strict, cfg.LogWindow.Size, cfg.Download.Threshold)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, ok := a.command(inv)
	if !ok {
		if isTerminal(a.Stdin) {
			return errNoCommand
		}
		return a.renderStdin(ctx, cfg, inv, logger)
	}
	return a.wrap(ctx, cfg, inv, c, logger)
}

// command resolves the wrapped program from the mode, --pix-command or the
// first forwarded argument.
func (a *App) command(inv *invocation) (wrapper.Command, bool) {
	switch {
	case a.Mode.Program != "":
		return wrapper.NewCommand(a.Mode.Program, inv.forwarded...), true
	case inv.command != "":
		return wrapper.NewCommand(inv.command, inv.forwarded...), true
	}
	return wrapper.Parse(inv.forwarded)
}

// wrap runs c under the live display and reports how it went.
func (a *App) wrap(ctx context.Context, cfg *config.Config, inv *invocation, c wrapper.Command, logger *logging.DebugLogger) error {
	p, err := a.startPipeline(cfg, inv, c.String(), logger)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := time.Now()
	proc, err := a.Runner.Start(runCtx, c)
	if err != nil {
		p.close()
		return err
	}
	logger.Log("[wrapper] started %s (pid %d)", c, proc.Pid())

	merger := stream.Merge(runCtx, proc.Stdout, proc.Stderr)
	runErr := p.session.Run(runCtx, merger.Lines(), p.resizes)

	var waitErr, readErr error
	if runErr != nil {
		// Interrupt the child; Wait closes its pipes so the readers stop.
		cancel()
		waitErr = proc.Wait()
		merger.Wait()
	} else {
		readErr = merger.Wait()
		waitErr = proc.Wait()
	}
	logger.Log("[wrapper] %s exited after %v: %v", c, time.Since(started), waitErr)

	closeErr := p.close()

	run := p.summary(c.String(), started)
	err = firstError(a.interrupted(ctx, runErr), closeErr, readErr, waitErr)

	var exit *wrapper.ExitError
	switch {
	case runErr != nil:
		run.Status, run.ExitCode = models.RunStatusAborted, 1
		if errors.As(err, &exit) {
			run.ExitCode = exit.Code
		}
	case errors.As(err, &exit):
		run.Status, run.ExitCode = models.RunStatusFailed, exit.Code
	case err != nil:
		run.Status, run.ExitCode = models.RunStatusFailed, 1
	default:
		run.Status = models.RunStatusSucceeded
	}
	a.saveRun(cfg, run, logger)

	if err != nil {
		return err
	}
	if c.IsRepl() {
		return a.Runner.RunAttached(ctx, c)
	}
	return nil
}

// renderStdin renders a log piped into pix.
func (a *App) renderStdin(ctx context.Context, cfg *config.Config, inv *invocation, logger *logging.DebugLogger) error {
	p, err := a.startPipeline(cfg, inv, "stdin", logger)
	if err != nil {
		return err
	}

	merger := stream.Merge(ctx, nil, a.Stdin)
	runErr := p.session.Run(ctx, merger.Lines(), p.resizes)

	var readErr error
	if runErr == nil {
		readErr = merger.Wait()
	}
	return firstError(a.interrupted(ctx, runErr), p.close(), readErr)
}

func (a *App) interrupted(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return &wrapper.ExitError{Code: exitInterrupted}
	}
	return err
}

// pipeline is one session: engine, handlers and the surface they draw on.
type pipeline struct {
	engine   *dispatch.Engine
	session  *session.Session
	tally    *handlers.Tally
	display  *tui.Display
	recorder *stream.Recorder
	resizes  <-chan int
	logger   *logging.DebugLogger
}

func (a *App) startPipeline(cfg *config.Config, inv *invocation, title string, logger *logging.DebugLogger) (*pipeline, error) {
	interactive := !inv.plain && isTerminal(a.Stderr) && os.Getenv("TERM") != "dumb"
	style.ConfigureColor(interactive)

	p := &pipeline{tally: &handlers.Tally{}, logger: logger}
	width := terminalWidth(a.Stderr)

	sessionOpts := []session.Option{
		session.WithStrict(cfg.Strict),
		session.WithLogger(logger),
	}
	if !interactive || !isTerminal(a.Stdout) {
		sessionOpts = append(sessionOpts, session.WithStdout(a.Stdout))
	}

	if inv.record != "" {
		rec, err := stream.CreateRecorder(inv.record, time.Now())
		if err != nil {
			return nil, err
		}
		logger.Log("[record] writing %s", inv.record)
		p.recorder = rec
		sessionOpts = append(sessionOpts, session.WithRecorder(rec))
	}

	var surface dispatch.Surface
	if interactive {
		p.display = tui.NewDisplay(title, a.Stderr,
			tui.WithRefreshRate(cfg.TUI.RefreshRate),
			tui.WithInitialWidth(width),
		)
		p.display.Start()
		p.resizes = p.display.Resizes()
		surface = p.display
		sessionOpts = append(sessionOpts, session.WithRenderer(p.display))
	} else {
		surface = tui.NewPlain(a.Stderr)
	}

	p.engine = dispatch.New(surface, dispatch.WithWidth(width), dispatch.WithLogger(logger))
	handlers.Seed(p.engine, handlerOptions(cfg), p.tally)
	p.session = session.New(p.engine, sessionOpts...)
	return p, nil
}

// close retires what is left of the handlers and tears down the display.
func (p *pipeline) close() error {
	p.engine.Close()

	var err error
	if p.display != nil {
		if derr := p.display.Close(); derr != nil {
			err = fmt.Errorf("%w: %v", session.ErrRender, derr)
		}
	}
	if p.recorder != nil {
		if rerr := p.recorder.Close(); rerr != nil {
			p.logger.Log("[record] close failed: %v", rerr)
			err = firstError(err, rerr)
		}
	}
	return err
}

func (p *pipeline) summary(command string, started time.Time) *models.Run {
	t := p.tally.Snapshot()
	return &models.Run{
		Command:         command,
		StartedAt:       started,
		Duration:        time.Since(started),
		Builds:          t.Builds,
		FailedBuilds:    t.FailedBuilds,
		Downloads:       t.Downloads,
		DownloadedBytes: t.DownloadedBytes,
	}
}

func handlerOptions(cfg *config.Config) handlers.Options {
	return handlers.Options{
		Debug:             cfg.Debug,
		SummaryDownload:   cfg.Summary.Download,
		LogHistory:        cfg.LogHistory.Size,
		LogHistoryFailure: cfg.LogHistory.FailureSize,
		LogWindow:         cfg.LogWindow.Size,
		DownloadThreshold: uint64(cfg.Download.Threshold),
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

type fdWriter interface {
	Fd() uintptr
}

func isTerminal(v any) bool {
	f, ok := v.(fdWriter)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(v any) int {
	f, ok := v.(fdWriter)
	if !ok {
		return dispatch.DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return dispatch.DefaultWidth
	}
	return width
}

// saveRun stores run in the history when it is enabled. Failures are only
// logged.
func (a *App) saveRun(cfg *config.Config, run *models.Run, logger *logging.DebugLogger) {
	if !cfg.History.Enabled {
		return
	}

	db, err := history.OpenAndMigrate(cfg.History.Path)
	if err != nil {
		logger.Log("[history] open failed: %v", err)
		return
	}
	defer db.Close()

	if err := db.Record(run); err != nil {
		logger.Log("[history] record failed: %v", err)
	}
}
