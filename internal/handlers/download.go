package handlers

import (
	"fmt"
	"time"

	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/protocol"
	"github.com/ShayCichocki/pix/internal/style"
)

// waitForTransfer follows a copy until the file transfer that serves it
// starts, then hands over to a transfer handler.
type waitForTransfer struct {
	sh     *shared
	copyID protocol.StepID
	path   string
}

func (w *waitForTransfer) OnEvent(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	switch ev := ev.(type) {
	case protocol.Start:
		if ev.Kind != protocol.ActionFileTransfer || ev.Parent != w.copyID || !ctx.Claim(ev.ID) {
			break
		}
		ctx.Plug(&transfer{sh: w.sh, id: ev.ID, path: w.path})
		ctx.Plug(newLog(w.sh, ev.ID, "", 0))
		return dispatch.Close

	case protocol.Stop:
		// The copy finished without transferring anything.
		if ev.ID == w.copyID {
			return dispatch.Close
		}
	}
	return dispatch.Continue
}

// transfer follows one file transfer. Its bar is only allocated once the
// transfer is known to be large enough.
type transfer struct {
	sh   *shared
	id   protocol.StepID
	path string

	started  bool
	since    time.Time
	bar      dispatch.SlotID
	done     uint64
	expected uint64
}

func (t *transfer) OnEvent(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	switch ev := ev.(type) {
	case protocol.Result:
		progress, ok := ev.Fields.(protocol.Progress)
		if ev.ID != t.id || !ok {
			break
		}
		if !t.started && progress.Expected > 0 {
			t.started = true
			t.since = ctx.Now()
			if progress.Expected >= t.sh.opts.DownloadThreshold {
				t.bar = ctx.AddBar(t.line(ctx))
			}
		}
		t.done, t.expected = progress.Done, progress.Expected
		ctx.SetBar(t.bar, t.line(ctx))

	case protocol.Stop:
		if ev.ID != t.id {
			break
		}
		if t.started {
			t.sh.tally.addDownload(t.done)
			if t.sh.opts.SummaryDownload {
				stats := style.Muted(fmt.Sprintf(" (%s, %s)", style.Bytes(t.done), style.Duration(ctx.Now().Sub(t.since))))
				ctx.Println(fmt.Sprintf("%s Downloaded %s", style.Success(style.IconDownload), style.FullTarget(t.path)) + stats)
			}
		}
		return dispatch.Close
	}
	return dispatch.Continue
}

func (t *transfer) OnResize(ctx *dispatch.Context, width int) {
	ctx.SetBar(t.bar, t.line(ctx))
}

func (t *transfer) line(ctx *dispatch.Context) dispatch.Line {
	layout := style.LayoutFor(ctx.Width())

	bar := "[" + style.MultiBar(style.Segments(uint64(layout.Bar), t.done, t.done, t.expected)) + "]"
	if layout.ShowBytes() {
		bar = fmt.Sprintf("%12s ", style.Bytes(t.done)) + bar
	}
	if layout.ShowRate() {
		bar = fmt.Sprintf("%12s ", rate(t.done, ctx.Now().Sub(t.since))) + bar
	}

	return dispatch.Line{
		Text:  "Download " + style.ShortTarget(t.path),
		Bar:   bar,
		Since: t.since,
	}
}

// rate formats bytes per second over elapsed.
func rate(bytes uint64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return style.Bytes(0) + "/s"
	}
	return style.Bytes(uint64(float64(bytes)/elapsed.Seconds())) + "/s"
}
