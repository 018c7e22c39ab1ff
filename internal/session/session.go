// Package session feeds the merged output of a wrapped process through the
// protocol decoder and the dispatch engine.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/logging"
	"github.com/ShayCichocki/pix/internal/protocol"
	"github.com/ShayCichocki/pix/internal/stream"
)

// ErrRender is returned when the live display stops working.
var ErrRender = errors.New("display failed")

// LineError reports a protocol line that could not be decoded in strict
// mode.
type LineError struct {
	Line string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%v\n  in line: %q", e.Err, e.Line)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Renderer is a display whose loop can stop on its own.
type Renderer interface {
	Done() <-chan struct{}
	Err() error
}

// Stats counts what a session processed.
type Stats struct {
	Lines        uint64
	Events       uint64
	DecodeErrors uint64
}

// Session routes lines: protocol lines on the error stream become events,
// everything else is printed as is.
type Session struct {
	engine   *dispatch.Engine
	strict   bool
	stdout   io.Writer
	recorder *stream.Recorder
	logger   *logging.DebugLogger
	renderer Renderer
	stats    Stats
}

// Option configures a Session.
type Option func(*Session)

// WithStrict makes decode failures abort the session instead of printing
// the raw line.
func WithStrict(strict bool) Option {
	return func(s *Session) { s.strict = strict }
}

// WithStdout writes lines from the standard output of the process to w
// instead of printing them above the live region.
func WithStdout(w io.Writer) Option {
	return func(s *Session) { s.stdout = w }
}

// WithRecorder records every line before it is processed.
func WithRecorder(r *stream.Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(s *Session) { s.logger = l }
}

// WithRenderer makes Run fail with ErrRender when r stops.
func WithRenderer(r Renderer) Option {
	return func(s *Session) { s.renderer = r }
}

// New creates a Session dispatching to engine.
func New(engine *dispatch.Engine, opts ...Option) *Session {
	s := &Session{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the counters so far.
func (s *Session) Stats() Stats {
	return s.stats
}

// Run processes lines until the channel is closed or ctx is cancelled.
// Widths received on resizes are applied to the engine between lines.
func (s *Session) Run(ctx context.Context, lines <-chan stream.Line, resizes <-chan int) error {
	var rendererDone <-chan struct{}
	if s.renderer != nil {
		rendererDone = s.renderer.Done()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-rendererDone:
			return s.renderError()

		case width := <-resizes:
			s.engine.Resize(width)
			s.engine.ApplyResize()

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := s.HandleLine(line); err != nil {
				return err
			}
		}
	}
}

func (s *Session) renderError() error {
	err := s.renderer.Err()
	if err == nil {
		return fmt.Errorf("%w: display stopped", ErrRender)
	}
	return fmt.Errorf("%w: %v", ErrRender, err)
}

// HandleLine processes one line.
func (s *Session) HandleLine(line stream.Line) error {
	s.stats.Lines++

	if s.recorder != nil {
		if err := s.recorder.Record(line); err != nil {
			s.logger.Log("[session] record failed: %v", err)
		}
	}

	if line.Channel == stream.Stdout {
		s.passthrough(line)
		return nil
	}

	payload, ok := protocol.CutLine(line.Text)
	if !ok {
		s.engine.Println(line.Text)
		return nil
	}

	ev, err := protocol.Decode(payload)
	if err != nil {
		s.stats.DecodeErrors++
		if s.strict {
			return &LineError{Line: line.Text, Err: err}
		}
		s.logger.Log("[session] decode failed: %v: %s", err, line.Text)
		s.engine.Println(line.Text)
		return nil
	}

	s.stats.Events++
	s.engine.Dispatch(ev)
	return nil
}

func (s *Session) passthrough(line stream.Line) {
	if s.stdout == nil {
		s.engine.Println(line.Text)
		return
	}
	if _, err := io.WriteString(s.stdout, line.Text+"\n"); err != nil {
		s.logger.Log("[session] write stdout: %v", err)
	}
}
