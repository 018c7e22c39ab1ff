package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/handlers"
	"github.com/ShayCichocki/pix/internal/protocol"
	"github.com/ShayCichocki/pix/internal/stream"
	"github.com/ShayCichocki/pix/internal/tui"
)

func newTestSession(t *testing.T, opts ...Option) (*Session, *bytes.Buffer, *dispatch.Engine) {
	t.Helper()
	var out bytes.Buffer
	engine := dispatch.New(tui.NewPlain(&out))
	handlers.Seed(engine, handlers.DefaultOptions(), nil)
	return New(engine, opts...), &out, engine
}

func feed(lines ...stream.Line) <-chan stream.Line {
	ch := make(chan stream.Line, len(lines))
	for _, line := range lines {
		ch <- line
	}
	close(ch)
	return ch
}

func stderr(text string) stream.Line { return stream.Line{Channel: stream.Stderr, Text: text} }

func TestRun_EndToEnd(t *testing.T) {
	s, out, engine := newTestSession(t)
	seeds := engine.Len()

	err := s.Run(context.Background(), feed(
		stderr(`@nix {"action":"start","id":1,"level":0,"parent":0,"text":"","type":104}`),
		stderr(`@nix {"action":"start","id":2,"level":3,"parent":1,"text":"building","type":105,"fields":["/nix/store/abc-hello-1.0.drv","",1,1]}`),
		stderr(`@nix {"action":"result","id":2,"type":101,"fields":["make: done"]}`),
		stderr("plain text on stderr"),
		stream.Line{Channel: stream.Stdout, Text: "/nix/store/abc-hello-1.0"},
		stderr(`@nix {"action":"stop","id":2}`),
		stderr(`@nix {"action":"stop","id":1}`),
	), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := strings.Split(strings.TrimSpace(ansi.Strip(out.String())), "\n")
	want := []string{
		"plain text on stderr",
		"/nix/store/abc-hello-1.0",
		"✓ Built /nix/store/abc-hello-1.0",
		"└ make: done",
		"⯈ Built 1 derivations",
	}
	if len(got) != len(want) {
		t.Fatalf("output = %q", got)
	}
	for i := range want {
		if !strings.HasPrefix(got[i], want[i]) {
			t.Errorf("line %d = %q, want prefix %q", i, got[i], want[i])
		}
	}
	if engine.Len() != seeds {
		t.Errorf("Len() = %d, want %d", engine.Len(), seeds)
	}

	stats := s.Stats()
	if stats.Lines != 7 || stats.Events != 5 || stats.DecodeErrors != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandleLine_StrictQuotesLine(t *testing.T) {
	s, _, _ := newTestSession(t, WithStrict(true))

	line := `@nix {"action":"result","id":1,"type":109,"fields":[]}`
	err := s.HandleLine(stderr(line))

	var lineErr *LineError
	if !errors.As(err, &lineErr) {
		t.Fatalf("expected *LineError, got %v", err)
	}
	if lineErr.Line != line {
		t.Errorf("Line = %q, want %q", lineErr.Line, line)
	}
	if !errors.Is(err, protocol.ErrUnknownCode) {
		t.Errorf("expected ErrUnknownCode, got %v", err)
	}
	if !strings.Contains(err.Error(), `"@nix {`) {
		t.Errorf("expected the line quoted in %q", err.Error())
	}
}

func TestHandleLine_LenientPrintsRawLine(t *testing.T) {
	s, out, _ := newTestSession(t)

	bad := `@nix {"action":"result","id":1,"type":100,"fields":[]}`
	if err := s.HandleLine(stderr(bad)); err != nil {
		t.Fatalf("HandleLine failed: %v", err)
	}
	if err := s.HandleLine(stderr(`@nix {"action":"msg","level":1,"msg":"still decoding"}`)); err != nil {
		t.Fatalf("HandleLine failed: %v", err)
	}

	if got := out.String(); got != bad+"\nstill decoding\n" {
		t.Errorf("output = %q", got)
	}
	if s.Stats().DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", s.Stats().DecodeErrors)
	}
}

func TestHandleLine_StdoutOnlyPassesThrough(t *testing.T) {
	var stdout bytes.Buffer
	s, out, _ := newTestSession(t, WithStdout(&stdout))

	msg := `@nix {"action":"msg","level":0,"msg":"not decoded"}`
	if err := s.HandleLine(stream.Line{Channel: stream.Stdout, Text: msg}); err != nil {
		t.Fatalf("HandleLine failed: %v", err)
	}
	if stdout.String() != msg+"\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if out.Len() != 0 {
		t.Errorf("expected nothing on the display, got %q", out.String())
	}
}

func TestHandleLine_Records(t *testing.T) {
	var record bytes.Buffer
	s, _, _ := newTestSession(t, WithRecorder(stream.NewRecorder(&record, time.Now())))

	if err := s.HandleLine(stderr("hello")); err != nil {
		t.Fatalf("HandleLine failed: %v", err)
	}
	if !strings.HasPrefix(record.String(), "stderr ") || !strings.HasSuffix(record.String(), " hello\n") {
		t.Errorf("record = %q", record.String())
	}
}

func TestRun_AppliesResize(t *testing.T) {
	s, _, engine := newTestSession(t)

	resizes := make(chan int)
	lines := make(chan stream.Line)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, lines, resizes) }()

	resizes <- 42
	lines <- stderr("sync")
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if engine.Width() != 42 {
		t.Errorf("Width() = %d, want 42", engine.Width())
	}
}

type stoppedRenderer struct {
	done chan struct{}
	err  error
}

func (r *stoppedRenderer) Done() <-chan struct{} { return r.done }
func (r *stoppedRenderer) Err() error { return r.err }

func TestRun_FailsWhenRendererStops(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"with error", errors.New("program was killed")},
		{"without error", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &stoppedRenderer{done: make(chan struct{}), err: tt.err}
			close(r.done)
			s, _, _ := newTestSession(t, WithRenderer(r))

			// lines is never closed; only the renderer can end the run.
			lines := make(chan stream.Line)
			errc := make(chan error, 1)
			go func() { errc <- s.Run(context.Background(), lines, nil) }()

			select {
			case err := <-errc:
				if !errors.Is(err, ErrRender) {
					t.Errorf("Run() = %v, want ErrRender", err)
				}
				if tt.err != nil && !strings.Contains(err.Error(), tt.err.Error()) {
					t.Errorf("Run() = %v, want cause %q", err, tt.err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Run did not return after the renderer stopped")
			}
		})
	}
}
