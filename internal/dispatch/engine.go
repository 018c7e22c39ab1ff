package dispatch

import (
	"time"

	"github.com/ShayCichocki/pix/internal/logging"
	"github.com/ShayCichocki/pix/internal/protocol"
)

// DefaultWidth is used until the first resize notice.
const DefaultWidth = 80

// entry is one arena cell.
type entry struct {
	handler Handler
	gen     uint32
	live    bool
	slots   []SlotID
}

// Engine owns the ordered handler list and feeds events through it. It is
// not safe for concurrent use; events are processed strictly one at a time.
type Engine struct {
	surface Surface
	logger  *logging.DebugLogger
	now     func() time.Time

	arena []entry
	free  []uint32
	order []HandlerID

	width         int
	pendingWidth  int
	resizePending bool

	events uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithWidth sets the initial terminal width.
func WithWidth(width int) Option {
	return func(e *Engine) { e.width = width }
}

// WithClock overrides the time source handed to handlers.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine drawing on surface. A nil surface draws nothing.
func New(surface Surface, opts ...Option) *Engine {
	if surface == nil {
		surface = Discard
	}
	e := &Engine{
		surface: surface,
		now:     time.Now,
		width:   DefaultWidth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plug appends h to the handler list. Handlers plugged from outside a pass
// (the always-on seeds) take part from the next event on.
func (e *Engine) Plug(h Handler) HandlerID {
	id := e.alloc(h)
	e.order = append(e.order, id)
	ctx := &Context{engine: e, listLen: len(e.order)}
	ctx.init(id, h)
	e.order = append(e.order, ctx.plugged...)
	return id
}

// Len returns the number of live handlers.
func (e *Engine) Len() int {
	return len(e.order)
}

// Handlers returns the live handlers in list order.
func (e *Engine) Handlers() []Handler {
	out := make([]Handler, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.arena[id.index].handler)
	}
	return out
}

// Lookup returns the handler for id, or nil if it has closed.
func (e *Engine) Lookup(id HandlerID) Handler {
	if ent := e.get(id); ent != nil {
		return ent.handler
	}
	return nil
}

// Width returns the terminal width handlers currently lay out for.
func (e *Engine) Width() int {
	return e.width
}

// Events returns how many events were dispatched.
func (e *Engine) Events() uint64 {
	return e.events
}

// Println prints a line above the live region. The session uses it for
// text that is not part of the protocol.
func (e *Engine) Println(text string) {
	e.surface.Println(text)
}

// Resize records a new terminal width. It takes effect before the next
// event or on ApplyResize, whichever comes first; only the latest width of
// several notices is applied.
func (e *Engine) Resize(width int) {
	e.pendingWidth = width
	e.resizePending = true
}

// ApplyResize runs the resize hooks for a pending width, if any.
func (e *Engine) ApplyResize() {
	if !e.resizePending {
		return
	}
	e.resizePending = false
	e.width = e.pendingWidth

	e.pass(func(ctx *Context, h Handler) Outcome {
		if r, ok := h.(Resizer); ok {
			r.OnResize(ctx, e.width)
		}
		return Continue
	})
}

// Dispatch delivers ev to every live handler.
func (e *Engine) Dispatch(ev protocol.Event) {
	e.ApplyResize()
	e.events++

	e.pass(func(ctx *Context, h Handler) Outcome {
		return h.OnEvent(ctx, ev)
	})
}

// Close releases every handler and the slots they own.
func (e *Engine) Close() {
	for _, id := range e.order {
		e.retire(id)
	}
	e.order = nil
}

// pass calls fn for every handler of the current list and rebuilds the list
// from survivors followed by handlers plugged during the pass.
func (e *Engine) pass(fn func(ctx *Context, h Handler) Outcome) {
	snapshot := e.order
	ctx := &Context{engine: e, listLen: len(snapshot)}

	survivors := make([]HandlerID, 0, len(snapshot))
	for _, id := range snapshot {
		ent := e.get(id)
		if ent == nil {
			continue
		}
		ctx.current = id
		if fn(ctx, ent.handler) == Close {
			e.retire(id)
			continue
		}
		survivors = append(survivors, id)
	}

	e.order = append(survivors, ctx.plugged...)
}

func (e *Engine) alloc(h Handler) HandlerID {
	var index uint32
	if n := len(e.free); n > 0 {
		index = e.free[n-1]
		e.free = e.free[:n-1]
	} else {
		index = uint32(len(e.arena))
		e.arena = append(e.arena, entry{})
	}

	ent := &e.arena[index]
	ent.gen++
	ent.handler = h
	ent.live = true
	ent.slots = nil
	return HandlerID{index: index, gen: ent.gen}
}

func (e *Engine) get(id HandlerID) *entry {
	if int(id.index) >= len(e.arena) {
		return nil
	}
	ent := &e.arena[id.index]
	if !ent.live || ent.gen != id.gen {
		return nil
	}
	return ent
}

// retire frees the arena cell of id and releases its slots.
func (e *Engine) retire(id HandlerID) {
	ent := e.get(id)
	if ent == nil {
		return
	}
	for _, slot := range ent.slots {
		e.surface.Release(slot)
	}
	e.logger.Log("[dispatch] retired %s (%T), released %d slots", id, ent.handler, len(ent.slots))

	ent.handler = nil
	ent.slots = nil
	ent.live = false
	e.free = append(e.free, id.index)
}
