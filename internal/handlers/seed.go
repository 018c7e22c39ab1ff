package handlers

import (
	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/protocol"
)

// Seed plugs the always-on handlers into e. tally may be nil.
func Seed(e *dispatch.Engine, opts Options, tally *Tally) {
	sh := &shared{opts: opts, tally: tally}

	if opts.Debug {
		e.Plug(&debugGauge{})
	}
	e.Plug(dispatch.HandlerFunc(sh.detectBuildGroup))
	e.Plug(dispatch.HandlerFunc(sh.detectDownload))
	e.Plug(dispatch.HandlerFunc(sh.detectDownloadsGroup))
	e.Plug(dispatch.HandlerFunc(sh.detectUnknown))
	e.Plug(dispatch.HandlerFunc(printMessage))
}

func (sh *shared) detectBuildGroup(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	if start, ok := ev.(protocol.Start); ok && start.Kind == protocol.ActionBuilds {
		ctx.Plug(newBuildGroup(sh, start.ID))
	}
	return dispatch.Continue
}

func (sh *shared) detectDownload(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	start, ok := ev.(protocol.Start)
	if !ok || start.Kind != protocol.ActionCopyPath {
		return dispatch.Continue
	}
	if fields, ok := start.Fields.(protocol.CopyPathFields); ok {
		ctx.Plug(newLog(sh, start.ID, "", 0))
		ctx.Plug(&waitForTransfer{sh: sh, copyID: start.ID, path: fields.Path})
	}
	return dispatch.Continue
}

func (sh *shared) detectDownloadsGroup(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	if start, ok := ev.(protocol.Start); ok && start.Kind == protocol.ActionCopyPaths {
		ctx.Plug(newDownloadsGroup(start.ID))
	}
	return dispatch.Continue
}

func (sh *shared) detectUnknown(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	if start, ok := ev.(protocol.Start); ok && start.Kind == protocol.ActionUnknown {
		ctx.Plug(&unknown{id: start.ID, text: start.Text})
		ctx.Plug(newLog(sh, start.ID, "", 0))
	}
	return dispatch.Continue
}

func printMessage(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	if msg, ok := ev.(protocol.Message); ok {
		ctx.Println(msg.Text)
	}
	return dispatch.Continue
}
