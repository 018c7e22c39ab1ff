package tui

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/style"
)

// DefaultRefreshRate is how often the live region is redrawn.
const DefaultRefreshRate = 100 * time.Millisecond

// Messages applied to the board by the program loop.
type (
	addBarMsg struct {
		id   dispatch.SlotID
		line dispatch.Line
	}
	setBarMsg struct {
		id   dispatch.SlotID
		line dispatch.Line
	}
	addWindowMsg struct {
		id, anchor dispatch.SlotID
		capacity   int
	}
	pushLineMsg struct {
		id   dispatch.SlotID
		text string
	}
	releaseMsg struct {
		id dispatch.SlotID
	}
	quitMsg struct{}
)

// model is the bubbletea model behind Display. Only the program loop
// touches it.
type model struct {
	board   *board
	spinner spinner.Model
	command string
	width   int
	resizes chan int
	done    bool
	now     func() time.Time
}

func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		// Only the latest width matters to the session.
		select {
		case <-m.resizes:
		default:
		}
		m.resizes <- msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case addBarMsg:
		m.board.addBar(msg.id, msg.line)
	case setBarMsg:
		m.board.setBar(msg.id, msg.line)
	case addWindowMsg:
		m.board.addWindow(msg.id, msg.anchor, msg.capacity)
	case pushLineMsg:
		m.board.pushLine(msg.id, msg.text)
	case releaseMsg:
		m.board.release(msg.id)

	case quitMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *model) View() string {
	if m.done || m.board.len() == 0 {
		return ""
	}

	lines := []string{headerLine(m.width, m.command)}
	lines = append(lines, m.board.render(m.width, m.spinner.View(), m.now())...)
	return strings.Join(lines, "\n")
}

// Display is the interactive Surface: a bubbletea program drawing the live
// region inline, below the lines printed so far.
type Display struct {
	program *tea.Program
	model   *model
	next    atomic.Uint64
	done    chan struct{}
	err     error
}

var _ dispatch.Surface = (*Display)(nil)

// DisplayOption configures a Display.
type DisplayOption func(*displayOptions)

type displayOptions struct {
	refresh time.Duration
	width   int
}

// WithRefreshRate sets how often the live region is redrawn.
func WithRefreshRate(d time.Duration) DisplayOption {
	return func(o *displayOptions) { o.refresh = d }
}

// WithInitialWidth sets the width used before the terminal reports one.
func WithInitialWidth(width int) DisplayOption {
	return func(o *displayOptions) { o.width = width }
}

// NewDisplay creates a Display for command writing to out, usually the
// standard error of a terminal. Call Start before using it.
func NewDisplay(command string, out io.Writer, opts ...DisplayOption) *Display {
	o := displayOptions{refresh: DefaultRefreshRate, width: dispatch.DefaultWidth}
	for _, opt := range opts {
		opt(&o)
	}

	m := &model{
		board: newBoard(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(style.RunningStyle),
		),
		command: command,
		width:   o.width,
		resizes: make(chan int, 1),
		now:     time.Now,
	}

	fps := 10
	if o.refresh > 0 {
		fps = max(1, int(time.Second/o.refresh))
	}

	p := tea.NewProgram(m,
		tea.WithInput(nil),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
		tea.WithFPS(fps),
	)

	return &Display{program: p, model: m, done: make(chan struct{})}
}

// Start runs the program loop in the background.
func (d *Display) Start() {
	go func() {
		defer close(d.done)
		if _, err := d.program.Run(); err != nil {
			d.err = fmt.Errorf("run display: %w", err)
		}
	}()
}

// Resizes delivers terminal widths as the terminal is resized.
func (d *Display) Resizes() <-chan int {
	return d.model.resizes
}

// Done is closed when the program loop has exited.
func (d *Display) Done() <-chan struct{} {
	return d.done
}

// Err returns the error that stopped the program loop, if any. It is only
// meaningful after Done is closed.
func (d *Display) Err() error {
	return d.err
}

// Close clears the live region and waits for the program loop to exit.
func (d *Display) Close() error {
	d.program.Send(quitMsg{})
	<-d.done
	return d.err
}

// Println prints text above the live region. Once the program loop has
// exited the line is dropped; Program.Println would block forever.
func (d *Display) Println(text string) {
	select {
	case <-d.done:
		return
	default:
	}

	sent := make(chan struct{})
	go func() {
		d.program.Println(text)
		close(sent)
	}()
	select {
	case <-sent:
	case <-d.done:
	}
}

func (d *Display) AddBar(line dispatch.Line) dispatch.SlotID {
	id := dispatch.SlotID(d.next.Add(1))
	d.program.Send(addBarMsg{id: id, line: line})
	return id
}

func (d *Display) SetBar(id dispatch.SlotID, line dispatch.Line) {
	d.program.Send(setBarMsg{id: id, line: line})
}

func (d *Display) AddWindow(anchor dispatch.SlotID, capacity int) dispatch.SlotID {
	id := dispatch.SlotID(d.next.Add(1))
	d.program.Send(addWindowMsg{id: id, anchor: anchor, capacity: capacity})
	return id
}

func (d *Display) PushLine(id dispatch.SlotID, text string) {
	d.program.Send(pushLineMsg{id: id, text: text})
}

func (d *Display) Release(id dispatch.SlotID) {
	d.program.Send(releaseMsg{id: id})
}
