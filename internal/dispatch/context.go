package dispatch

import (
	"time"

	"github.com/ShayCichocki/pix/internal/protocol"
)

// Context is handed to a handler for the duration of one call. It must not
// be retained.
type Context struct {
	engine  *Engine
	current HandlerID
	plugged []HandlerID
	claims  map[protocol.StepID]HandlerID
	listLen int
}

// Self returns the id of the handler being called.
func (c *Context) Self() HandlerID {
	return c.current
}

// Plug registers a new handler. It joins the list after the current pass
// and sees events from the next one on.
func (c *Context) Plug(h Handler) HandlerID {
	id := c.engine.alloc(h)
	c.plugged = append(c.plugged, id)
	c.init(id, h)
	return id
}

func (c *Context) init(id HandlerID, h Handler) {
	in, ok := h.(Initializer)
	if !ok {
		return
	}
	prev := c.current
	c.current = id
	in.Init(c)
	c.current = prev
}

// Claim marks step id as consumed by the calling handler for the current
// event. It returns false if a handler earlier in the list claimed it.
func (c *Context) Claim(id protocol.StepID) bool {
	if c.claims == nil {
		c.claims = make(map[protocol.StepID]HandlerID)
	}
	if owner, ok := c.claims[id]; ok {
		return owner == c.current
	}
	c.claims[id] = c.current
	return true
}

// Claimed reports whether a handler already claimed step id for the
// current event.
func (c *Context) Claimed(id protocol.StepID) bool {
	_, ok := c.claims[id]
	return ok
}

// Width returns the current terminal width.
func (c *Context) Width() int {
	return c.engine.width
}

// Now returns the engine clock.
func (c *Context) Now() time.Time {
	return c.engine.now()
}

// HandlersLen returns the length of the handler list being processed.
func (c *Context) HandlersLen() int {
	return c.listLen
}

// Println prints a line above the live region.
func (c *Context) Println(text string) {
	c.engine.surface.Println(text)
}

// AddBar allocates a bar slot owned by the calling handler.
func (c *Context) AddBar(line Line) SlotID {
	slot := c.engine.surface.AddBar(line)
	c.own(slot)
	return slot
}

// SetBar updates a bar slot.
func (c *Context) SetBar(slot SlotID, line Line) {
	if slot == 0 {
		return
	}
	c.engine.surface.SetBar(slot, line)
}

// AddWindow allocates a log window under anchor, owned by the calling
// handler.
func (c *Context) AddWindow(anchor SlotID, capacity int) SlotID {
	slot := c.engine.surface.AddWindow(anchor, capacity)
	c.own(slot)
	return slot
}

// PushLine appends text to a log window. Any handler may push to a window
// it knows about; pushing to a released window does nothing.
func (c *Context) PushLine(window SlotID, text string) {
	if window == 0 {
		return
	}
	c.engine.surface.PushLine(window, text)
}

// Release frees a slot owned by the calling handler before it closes.
func (c *Context) Release(slot SlotID) {
	if slot == 0 {
		return
	}
	ent := c.engine.get(c.current)
	if ent == nil {
		return
	}
	for i, s := range ent.slots {
		if s == slot {
			ent.slots = append(ent.slots[:i], ent.slots[i+1:]...)
			c.engine.surface.Release(slot)
			return
		}
	}
}

func (c *Context) own(slot SlotID) {
	if slot == 0 {
		return
	}
	if ent := c.engine.get(c.current); ent != nil {
		ent.slots = append(ent.slots, slot)
	}
}
