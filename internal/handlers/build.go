package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/protocol"
	"github.com/ShayCichocki/pix/internal/style"
)

// buildGroup follows a group of builds: it owns the group bar and the log
// window shared by the builds it claims.
type buildGroup struct {
	sh     *shared
	id     protocol.StepID
	start  time.Time
	bar    dispatch.SlotID
	window dispatch.SlotID
	builds *labels

	done     uint64
	expected uint64
	running  uint64
	finished uint64
}

func newBuildGroup(sh *shared, id protocol.StepID) *buildGroup {
	return &buildGroup{sh: sh, id: id, builds: newLabels()}
}

func (g *buildGroup) Init(ctx *dispatch.Context) {
	g.start = ctx.Now()
	g.bar = ctx.AddBar(g.line(ctx.Width()))
	if g.sh.opts.LogWindow > 0 {
		g.window = ctx.AddWindow(g.bar, g.sh.opts.LogWindow)
	}
}

func (g *buildGroup) OnEvent(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	switch ev := ev.(type) {
	case protocol.Start:
		fields, ok := ev.Fields.(protocol.BuildFields)
		if ev.Kind != protocol.ActionBuild || !ok || !ctx.Claim(ev.ID) {
			break
		}
		g.builds.set(ev.ID, style.ShortTarget(fields.Target))
		ctx.Plug(&build{sh: g.sh, id: ev.ID, target: fields.Target, start: ctx.Now()})
		ctx.Plug(newLog(g.sh, ev.ID, fields.Target, g.window))
		g.redraw(ctx)

	case protocol.Result:
		progress, ok := ev.Fields.(protocol.Progress)
		if ev.ID != g.id || !ok {
			break
		}
		g.done, g.expected, g.running = progress.Done, progress.Expected, progress.Running
		g.redraw(ctx)

	case protocol.Stop:
		if ev.ID == g.id {
			g.finish(ctx)
			return dispatch.Close
		}
		if g.builds.remove(ev.ID) {
			g.finished++
			g.redraw(ctx)
		}
	}
	return dispatch.Continue
}

func (g *buildGroup) OnResize(ctx *dispatch.Context, width int) {
	g.redraw(ctx)
}

// built is the number of derivations the group reports, falling back to
// the builds seen stopping when no progress was reported.
func (g *buildGroup) built() uint64 {
	return max(g.expected, g.finished)
}

func (g *buildGroup) finish(ctx *dispatch.Context) {
	n := g.built()
	if n == 0 {
		return
	}
	detail := style.Muted(fmt.Sprintf("(%s)", style.Duration(ctx.Now().Sub(g.start))))
	ctx.Println(fmt.Sprintf("%s Built %d derivations %s", style.Success(style.IconBuiltGroup), n, detail))
}

func (g *buildGroup) redraw(ctx *dispatch.Context) {
	ctx.SetBar(g.bar, g.line(ctx.Width()))
}

func (g *buildGroup) line(width int) dispatch.Line {
	layout := style.LayoutFor(width)

	text := "Build " + g.builds.join(", ")
	bar := "[" + style.MultiBar(style.Segments(uint64(layout.Bar), g.done, g.done+g.running, g.expected)) + "]"
	if width > 50 {
		bar = fmt.Sprintf("%5d/%-6d %s", g.done, g.expected, bar)
	}

	return dispatch.Line{
		Spinner: true,
		Text:    strings.TrimSpace(text),
		Bar:     bar,
		Since:   g.start,
	}
}

// build prints a summary line when one build stops.
type build struct {
	sh     *shared
	id     protocol.StepID
	target string
	start  time.Time
	failed bool
}

func (b *build) OnEvent(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	switch ev := ev.(type) {
	case protocol.Message:
		if b.target != "" && ev.Level == protocol.LevelError && strings.Contains(ev.Text, b.target) {
			b.failed = true
		}

	case protocol.Stop:
		if ev.ID != b.id {
			break
		}
		detail := style.Muted(fmt.Sprintf("(%s)", style.Duration(ctx.Now().Sub(b.start))))
		if b.failed {
			ctx.Println(fmt.Sprintf("%s Failed %s %s", style.Error("✗"), style.FullTarget(b.target), detail))
		} else {
			ctx.Println(fmt.Sprintf("%s Built %s %s", style.Success(style.IconBuilt), style.FullTarget(b.target), detail))
		}
		b.sh.tally.addBuild(b.failed)
		return dispatch.Close
	}
	return dispatch.Continue
}
