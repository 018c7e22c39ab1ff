package dispatch

import (
	"fmt"

	"github.com/ShayCichocki/pix/internal/protocol"
)

// Outcome tells the Engine whether a handler stays in the list.
type Outcome int

const (
	Continue Outcome = iota
	Close
)

func (o Outcome) String() string {
	if o == Close {
		return "close"
	}
	return "continue"
}

// Handler reacts to decoded events. OnEvent must handle every event type;
// events that do not concern the handler are ignored by returning Continue.
type Handler interface {
	OnEvent(ctx *Context, ev protocol.Event) Outcome
}

// Resizer is implemented by handlers whose rendering depends on the
// terminal width.
type Resizer interface {
	OnResize(ctx *Context, width int)
}

// Initializer is implemented by handlers that allocate rendering slots or
// print when they are plugged. Init runs immediately, with the new handler
// as the owner of anything it allocates.
type Initializer interface {
	Init(ctx *Context)
}

// HandlerFunc adapts a function to the Handler interface. It is used for
// stateless detectors that only plug other handlers.
type HandlerFunc func(ctx *Context, ev protocol.Event) Outcome

func (f HandlerFunc) OnEvent(ctx *Context, ev protocol.Event) Outcome {
	return f(ctx, ev)
}

// HandlerID addresses a handler in the Engine arena.
type HandlerID struct {
	index uint32
	gen   uint32
}

// Valid reports whether id was issued by an Engine.
func (id HandlerID) Valid() bool {
	return id.gen != 0
}

func (id HandlerID) String() string {
	return fmt.Sprintf("h%d.%d", id.index, id.gen)
}
