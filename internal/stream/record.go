package stream

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix selects zstd compression for record files.
const CompressedSuffix = ".zst"

// Record is one line of a record file.
type Record struct {
	Channel Channel
	Offset  time.Duration
	Text    string
}

// String formats r as a record file line, without the newline.
func (r Record) String() string {
	return fmt.Sprintf("%s %08d %s", r.Channel, r.Offset.Milliseconds(), r.Text)
}

// ParseRecord parses one record file line.
func ParseRecord(line string) (Record, error) {
	chName, rest, ok := strings.Cut(line, " ")
	if !ok {
		return Record{}, fmt.Errorf("parse record %q: missing offset", line)
	}
	ch, err := ParseChannel(chName)
	if err != nil {
		return Record{}, fmt.Errorf("parse record: %w", err)
	}

	millis, text, _ := strings.Cut(rest, " ")
	ms, err := strconv.ParseUint(millis, 10, 63)
	if err != nil {
		return Record{}, fmt.Errorf("parse record offset %q: %w", millis, err)
	}

	return Record{Channel: ch, Offset: time.Duration(ms) * time.Millisecond, Text: text}, nil
}

// Recorder writes merged lines to a record file with their offset from the
// start of the session.
type Recorder struct {
	w      io.Writer
	closer []io.Closer
	start  time.Time
}

// NewRecorder records to w, timing lines relative to start.
func NewRecorder(w io.Writer, start time.Time) *Recorder {
	return &Recorder{w: w, start: start}
}

// CreateRecorder creates the record file at path. A path ending in
// CompressedSuffix is zstd-compressed.
func CreateRecorder(path string, start time.Time) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create record file: %w", err)
	}

	if !strings.HasSuffix(path, CompressedSuffix) {
		return &Recorder{w: f, closer: []io.Closer{f}, start: start}, nil
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	return &Recorder{w: enc, closer: []io.Closer{enc, f}, start: start}, nil
}

// Record writes one line.
func (r *Recorder) Record(line Line) error {
	at := line.At
	if at.IsZero() {
		at = time.Now()
	}
	rec := Record{Channel: line.Channel, Offset: max(at.Sub(r.start), 0), Text: line.Text}
	if _, err := io.WriteString(r.w, rec.String()+"\n"); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (r *Recorder) Close() error {
	var first error
	for _, c := range r.closer {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
