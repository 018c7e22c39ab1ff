package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/ring"
	"github.com/ShayCichocki/pix/internal/style"
)

// windowIndent is the left margin of log window lines.
const windowIndent = "  "

// slot is one region of the live display: a bar or a log window.
type slot struct {
	id     dispatch.SlotID
	line   dispatch.Line
	anchor dispatch.SlotID
	lines  *ring.Buffer // nil for bars
}

// board keeps the live slots in display order. It is not safe for
// concurrent use.
type board struct {
	slots []*slot
	index map[dispatch.SlotID]*slot
}

func newBoard() *board {
	return &board{index: make(map[dispatch.SlotID]*slot)}
}

func (b *board) len() int {
	return len(b.slots)
}

func (b *board) addBar(id dispatch.SlotID, line dispatch.Line) {
	s := &slot{id: id, line: line}
	b.slots = append(b.slots, s)
	b.index[id] = s
}

func (b *board) setBar(id dispatch.SlotID, line dispatch.Line) {
	if s, ok := b.index[id]; ok && s.lines == nil {
		s.line = line
	}
}

// addWindow inserts a window right after its anchor and any windows already
// attached to it. Without a live anchor it goes last.
func (b *board) addWindow(id, anchor dispatch.SlotID, capacity int) {
	if capacity <= 0 {
		capacity = 1
	}
	s := &slot{id: id, anchor: anchor, lines: ring.New(capacity)}
	b.index[id] = s

	pos := len(b.slots)
	for i, other := range b.slots {
		if other.id == anchor {
			pos = i + 1
			for pos < len(b.slots) && b.slots[pos].lines != nil && b.slots[pos].anchor == anchor {
				pos++
			}
			break
		}
	}
	b.slots = append(b.slots, nil)
	copy(b.slots[pos+1:], b.slots[pos:])
	b.slots[pos] = s
}

func (b *board) pushLine(id dispatch.SlotID, text string) {
	if s, ok := b.index[id]; ok && s.lines != nil {
		s.lines.Append(text)
	}
}

func (b *board) release(id dispatch.SlotID) {
	if _, ok := b.index[id]; !ok {
		return
	}
	delete(b.index, id)
	for i, s := range b.slots {
		if s.id == id {
			b.slots = append(b.slots[:i], b.slots[i+1:]...)
			return
		}
	}
}

func (b *board) bars() []dispatch.Line {
	var out []dispatch.Line
	for _, s := range b.slots {
		if s.lines == nil {
			out = append(out, s.line)
		}
	}
	return out
}

func (b *board) window(id dispatch.SlotID) []string {
	if s, ok := b.index[id]; ok && s.lines != nil {
		return s.lines.Lines()
	}
	return nil
}

// render draws every slot for a terminal of the given width.
func (b *board) render(width int, frame string, now time.Time) []string {
	var out []string
	for _, s := range b.slots {
		if s.lines != nil {
			for _, line := range s.lines.Lines() {
				out = append(out, ansi.Truncate(windowIndent+style.Muted(line), width, "…"))
			}
			continue
		}
		out = append(out, renderLine(s.line, width, frame, now))
	}
	return out
}

// renderLine lays out a bar: the message is truncated or padded to the
// room left by the bar and the elapsed column.
func renderLine(line dispatch.Line, width int, frame string, now time.Time) string {
	layout := style.LayoutFor(width)

	text := line.Text
	if line.Spinner {
		text = frame + " " + text
	}

	elapsed := ""
	if layout.Elapsed && !line.Since.IsZero() {
		elapsed = style.Muted(fmt.Sprintf(" %-5s", style.Duration(now.Sub(line.Since).Truncate(time.Second))))
	}

	bar := line.Bar
	if bar != "" {
		bar = " " + bar
	}

	room := width - ansi.StringWidth(bar) - ansi.StringWidth(elapsed)
	if room <= 0 {
		return ansi.Truncate(text, width, "…")
	}

	text = ansi.Truncate(text, room, "…")
	if pad := room - ansi.StringWidth(text); pad > 0 {
		text += strings.Repeat(" ", pad)
	}
	return text + bar + elapsed
}
