package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/klauspost/compress/zstd"
)

// Replayer re-emits a record file with its original timing.
type Replayer struct {
	// Factor speeds up (> 1) or slows down (< 1) the replay.
	Factor float64
	// Skip drops the waiting for lines recorded before this offset.
	Skip time.Duration

	Stdout io.Writer
	Stderr io.Writer
	Clock  Clock
}

// Delay returns how long after the start of the replay a record recorded
// at offset is emitted.
func (r *Replayer) Delay(offset time.Duration) time.Duration {
	factor := r.Factor
	if factor <= 0 {
		factor = 1
	}
	d := max(offset-r.Skip, 0)
	return time.Duration(float64(d) / factor)
}

// Replay reads records from src and writes each text to its channel once
// its delay has elapsed.
func (r *Replayer) Replay(ctx context.Context, src io.Reader) error {
	clock := r.Clock
	if clock == nil {
		clock = RealClock()
	}
	start := clock.Now()

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		rec, err := ParseRecord(scanner.Text())
		if err != nil {
			return err
		}

		if wait := r.Delay(rec.Offset) - clock.Now().Sub(start); wait > 0 {
			select {
			case <-clock.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		out := r.Stdout
		if rec.Channel == Stderr {
			out = r.Stderr
		}
		if _, err := io.WriteString(out, rec.Text+"\n"); err != nil {
			return fmt.Errorf("write %s: %w", rec.Channel, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read record: %w", err)
	}
	return nil
}

// OpenRecord opens a record file for reading, decompressing files with
// CompressedSuffix. With follow set, reaching the end of the file waits for
// more data until ctx is cancelled.
func OpenRecord(ctx context.Context, path string, follow bool) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}

	var src io.ReadCloser = f
	if follow {
		fr, err := newFollowReader(ctx, f)
		if err != nil {
			f.Close()
			return nil, err
		}
		src = fr
	}

	if !strings.HasSuffix(path, CompressedSuffix) {
		return src, nil
	}

	dec, err := zstd.NewReader(src)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	return &zstdReadCloser{dec: dec, src: src}, nil
}

type zstdReadCloser struct {
	dec *zstd.Decoder
	src io.Closer
}

func (z *zstdReadCloser) Read(p []byte) (int, error) {
	return z.dec.Read(p)
}

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.src.Close()
}

// followReader turns end of file into a wait for the file to grow, like
// tail -f.
type followReader struct {
	ctx     context.Context
	f       *os.File
	watcher *fsnotify.Watcher
}

func newFollowReader(ctx context.Context, f *os.File) (*followReader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch record file: %w", err)
	}
	if err := watcher.Add(f.Name()); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch record file: %w", err)
	}
	return &followReader{ctx: ctx, f: f, watcher: watcher}, nil
}

func (r *followReader) Read(p []byte) (int, error) {
	for {
		n, err := r.f.Read(p)
		if n > 0 || !errors.Is(err, io.EOF) {
			return n, err
		}

		if err := r.wait(); err != nil {
			return 0, err
		}
	}
}

// wait blocks until the file is written to. Removal or rename of the file
// ends the stream.
func (r *followReader) wait() error {
	for {
		select {
		case <-r.ctx.Done():
			return io.EOF
		case event, ok := <-r.watcher.Events:
			if !ok {
				return io.EOF
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return io.EOF
			}
			if event.Op&fsnotify.Write != 0 {
				return nil
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return io.EOF
			}
			return fmt.Errorf("watch record file: %w", err)
		}
	}
}

func (r *followReader) Close() error {
	r.watcher.Close()
	return r.f.Close()
}
