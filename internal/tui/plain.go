package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/pix/internal/dispatch"
)

// Plain is a Surface without a live region: printed lines go straight to
// the writer and slots are only kept in memory. It is used when the output
// is not a terminal and by tests.
type Plain struct {
	mu    sync.Mutex
	out   io.Writer
	board *board
	next  atomic.Uint64
}

var _ dispatch.Surface = (*Plain)(nil)

// NewPlain creates a Plain surface writing to out.
func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out, board: newBoard()}
}

func (p *Plain) Println(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}

func (p *Plain) AddBar(line dispatch.Line) dispatch.SlotID {
	id := dispatch.SlotID(p.next.Add(1))
	p.mu.Lock()
	defer p.mu.Unlock()
	p.board.addBar(id, line)
	return id
}

func (p *Plain) SetBar(id dispatch.SlotID, line dispatch.Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.board.setBar(id, line)
}

func (p *Plain) AddWindow(anchor dispatch.SlotID, capacity int) dispatch.SlotID {
	id := dispatch.SlotID(p.next.Add(1))
	p.mu.Lock()
	defer p.mu.Unlock()
	p.board.addWindow(id, anchor, capacity)
	return id
}

func (p *Plain) PushLine(id dispatch.SlotID, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.board.pushLine(id, text)
}

func (p *Plain) Release(id dispatch.SlotID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.board.release(id)
}

// Live returns the number of live slots.
func (p *Plain) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.board.len()
}

// Bars returns the content of the live bars in display order.
func (p *Plain) Bars() []dispatch.Line {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.board.bars()
}

// Window returns the lines currently shown by a log window.
func (p *Plain) Window(id dispatch.SlotID) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.board.window(id)
}

// Render draws the live region as the interactive display would.
func (p *Plain) Render(width int, command string, now time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.board.len() == 0 {
		return ""
	}
	lines := append([]string{headerLine(width, command)}, p.board.render(width, "*", now)...)
	return strings.Join(lines, "\n")
}
