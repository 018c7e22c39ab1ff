// Package stream merges the output streams of a wrapped process into one
// sequence of attributed lines, and records or replays that sequence.
package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxLineSize bounds a single line; protocol lines carrying long build log
// output can be large.
const maxLineSize = 4 * 1024 * 1024

// Channel names the stream a line was read from.
type Channel int

const (
	Stdout Channel = iota
	Stderr
)

func (c Channel) String() string {
	if c == Stderr {
		return "stderr"
	}
	return "stdout"
}

// ParseChannel parses the name written by Channel.String.
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "stdout":
		return Stdout, nil
	case "stderr":
		return Stderr, nil
	}
	return 0, fmt.Errorf("unknown channel %q", s)
}

// Line is one line of output with the stream it came from.
type Line struct {
	Channel Channel
	Text    string
	// At is when the line was read.
	At time.Time
}

// ReadError reports a failure reading one of the streams.
type ReadError struct {
	Channel Channel
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Channel, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Merger reads two streams concurrently and yields their lines as they
// become available. Order within a stream is preserved; order between
// streams is whichever line was read first.
type Merger struct {
	lines chan Line
	done  chan struct{}
	err   error
}

// Merge starts reading stdout and stderr. Either may be nil. The returned
// Merger's Lines channel is closed when both streams reach end of file,
// one of them fails, or ctx is cancelled.
func Merge(ctx context.Context, stdout, stderr io.Reader) *Merger {
	m := &Merger{
		lines: make(chan Line, 64),
		done:  make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	if stdout != nil {
		g.Go(func() error { return scan(gctx, Stdout, stdout, m.lines) })
	}
	if stderr != nil {
		g.Go(func() error { return scan(gctx, Stderr, stderr, m.lines) })
	}

	go func() {
		m.err = g.Wait()
		close(m.lines)
		close(m.done)
	}()

	return m
}

// Lines returns the merged lines.
func (m *Merger) Lines() <-chan Line {
	return m.lines
}

// Wait blocks until both readers stopped and returns the first read error.
func (m *Merger) Wait() error {
	<-m.done
	return m.err
}

func scan(ctx context.Context, ch Channel, r io.Reader, out chan<- Line) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := Line{Channel: ch, Text: scanner.Text(), At: time.Now()}
		select {
		case out <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return &ReadError{Channel: ch, Err: err}
	}
	return nil
}
