package handlers

import (
	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/protocol"
	"github.com/ShayCichocki/pix/internal/style"
)

// unknown shows a spinner for work of a kind without a dedicated handler.
type unknown struct {
	id   protocol.StepID
	text string
}

func (u *unknown) Init(ctx *dispatch.Context) {
	ctx.AddBar(dispatch.Line{
		Spinner: true,
		Text:    style.Capitalize(u.text),
		Since:   ctx.Now(),
	})
}

func (u *unknown) OnEvent(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	if stop, ok := ev.(protocol.Stop); ok && stop.ID == u.id {
		return dispatch.Close
	}
	return dispatch.Continue
}
