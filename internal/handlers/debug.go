package handlers

import (
	"fmt"

	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/protocol"
	"github.com/ShayCichocki/pix/internal/style"
)

// debugGauge shows how many events were parsed and how long the handler
// list is compared to its peak.
type debugGauge struct {
	bar    dispatch.SlotID
	events uint64
	length int
	peak   int
}

func (d *debugGauge) Init(ctx *dispatch.Context) {
	d.bar = ctx.AddBar(d.line(ctx.Width()))
}

func (d *debugGauge) OnEvent(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	d.events++
	d.length = ctx.HandlersLen()
	d.peak = max(d.peak, d.length)
	ctx.SetBar(d.bar, d.line(ctx.Width()))
	return dispatch.Continue
}

func (d *debugGauge) OnResize(ctx *dispatch.Context, width int) {
	ctx.SetBar(d.bar, d.line(width))
}

func (d *debugGauge) line(width int) dispatch.Line {
	layout := style.LayoutFor(width)
	seg := style.Segments(uint64(layout.Bar), uint64(d.length), uint64(d.length), uint64(d.peak))

	return dispatch.Line{
		Text: fmt.Sprintf("🔧 Parsed %s lines of log", style.Count(d.events)),
		Bar:  fmt.Sprintf("%5d/%-6d [%s]", d.length, d.peak, style.MultiBar(seg)),
	}
}
