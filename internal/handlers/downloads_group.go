package handlers

import (
	"fmt"
	"time"

	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/protocol"
	"github.com/ShayCichocki/pix/internal/style"
)

// downloadsGroup follows a group of copies. It does not claim anything: the
// per-copy handlers still follow their own steps.
type downloadsGroup struct {
	id    protocol.StepID
	start time.Time
	bar   dispatch.SlotID

	copies    *labels
	copy      map[protocol.StepID]protocol.Progress
	transfers map[protocol.StepID]protocol.Progress
	self      protocol.Progress

	maxCopy     uint64
	maxTransfer uint64
}

func newDownloadsGroup(id protocol.StepID) *downloadsGroup {
	return &downloadsGroup{
		id:        id,
		copies:    newLabels(),
		copy:      make(map[protocol.StepID]protocol.Progress),
		transfers: make(map[protocol.StepID]protocol.Progress),
	}
}

func (g *downloadsGroup) Init(ctx *dispatch.Context) {
	g.start = ctx.Now()
	g.bar = ctx.AddBar(g.line(ctx.Width()))
}

func (g *downloadsGroup) OnEvent(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	switch ev := ev.(type) {
	case protocol.Start:
		switch fields := ev.Fields.(type) {
		case protocol.CopyPathFields:
			g.copy[ev.ID] = protocol.Progress{}
			g.copies.set(ev.ID, style.ShortTarget(fields.Path))
		case protocol.FileTransferFields:
			g.transfers[ev.ID] = protocol.Progress{}
		default:
			return dispatch.Continue
		}

	case protocol.Result:
		switch fields := ev.Fields.(type) {
		case protocol.Progress:
			if !g.track(ev.ID, fields) {
				return dispatch.Continue
			}
		case protocol.SetExpected:
			switch fields.TargetKind {
			case protocol.ActionCopyPath:
				g.maxCopy = fields.Expected
			case protocol.ActionFileTransfer:
				g.maxTransfer = fields.Expected
			default:
				return dispatch.Continue
			}
		default:
			return dispatch.Continue
		}

	case protocol.Stop:
		if ev.ID == g.id {
			g.finish(ctx)
			return dispatch.Close
		}
		if !g.copies.remove(ev.ID) {
			return dispatch.Continue
		}

	default:
		return dispatch.Continue
	}

	ctx.SetBar(g.bar, g.line(ctx.Width()))
	return dispatch.Continue
}

func (g *downloadsGroup) OnResize(ctx *dispatch.Context, width int) {
	ctx.SetBar(g.bar, g.line(width))
}

// track records progress for the group itself or one of its steps and
// reports whether the id was relevant.
func (g *downloadsGroup) track(id protocol.StepID, p protocol.Progress) bool {
	tracked := false
	if id == g.id {
		g.self = p
		tracked = true
	}
	if _, ok := g.copy[id]; ok {
		g.copy[id] = p
		tracked = true
	}
	if _, ok := g.transfers[id]; ok {
		g.transfers[id] = p
		tracked = true
	}
	return tracked
}

// downloaded is the sum of bytes received by every transfer.
func (g *downloadsGroup) downloaded() uint64 {
	var n uint64
	for _, p := range g.transfers {
		n += p.Done
	}
	return n
}

// announced is the sum of the expected sizes of every transfer.
func (g *downloadsGroup) announced() uint64 {
	var n uint64
	for _, p := range g.transfers {
		n += p.Expected
	}
	return n
}

// unpacked is the sum of bytes copied into the store.
func (g *downloadsGroup) unpacked() uint64 {
	var n uint64
	for _, p := range g.copy {
		n += p.Done
	}
	return n
}

func (g *downloadsGroup) finish(ctx *dispatch.Context) {
	if g.self.Done == 0 {
		return
	}
	stats := style.Muted(fmt.Sprintf(" (%s downloaded, %s unpacked, %s)",
		style.Bytes(g.downloaded()),
		style.Bytes(g.unpacked()),
		style.Duration(ctx.Now().Sub(g.start)),
	))
	ctx.Println(fmt.Sprintf("%s Downloaded %d derivations", style.Success(style.IconDownload), g.self.Done) + stats)
}

func (g *downloadsGroup) line(width int) dispatch.Line {
	layout := style.LayoutFor(width)

	bar := "[" + style.MultiBar(style.Segments(uint64(layout.Bar), g.downloaded(), g.announced(), g.maxTransfer)) + "]"
	if layout.ShowBytes() {
		bar = fmt.Sprintf("%12s ", style.Bytes(g.downloaded())) + bar
	}

	return dispatch.Line{
		Spinner: true,
		Text:    fmt.Sprintf("Downloaded (%d/%d) %s", g.self.Done, g.self.Expected, g.copies.join(", ")),
		Bar:     bar,
		Since:   g.start,
	}
}
