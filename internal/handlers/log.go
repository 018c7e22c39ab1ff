package handlers

import (
	"strings"

	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/protocol"
	"github.com/ShayCichocki/pix/internal/ring"
	"github.com/ShayCichocki/pix/internal/style"
)

// Tree prefixes of flushed log lines.
const (
	logContinuation = "│ "
	logTerminator   = "└ "
)

// logHandler collects the log lines of one step and prints them when the
// step stops. Lines are also mirrored into a shared log window if one is
// given.
type logHandler struct {
	sh      *shared
	id      protocol.StepID
	target  string
	window  dispatch.SlotID
	history *ring.Buffer
	failed  bool
}

// newLog creates a log handler for step id. target is the store path of the
// build, used to recognize its failure message; it may be empty.
func newLog(sh *shared, id protocol.StepID, target string, window dispatch.SlotID) *logHandler {
	return &logHandler{
		sh:      sh,
		id:      id,
		target:  target,
		window:  window,
		history: ring.New(historyCapacity(sh.opts.LogHistory, sh.opts.LogHistoryFailure)),
	}
}

// historyCapacity keeps enough lines for whichever limit applies at flush
// time. Zero means unbounded.
func historyCapacity(size, failureSize int) int {
	if size <= 0 || failureSize <= 0 {
		return 0
	}
	return max(size, failureSize)
}

func (h *logHandler) OnEvent(ctx *dispatch.Context, ev protocol.Event) dispatch.Outcome {
	switch ev := ev.(type) {
	case protocol.Result:
		if ev.ID != h.id {
			break
		}
		if line, ok := ev.Fields.(protocol.BuildLogLine); ok {
			h.history.Append(line.Text)
			ctx.PushLine(h.window, line.Text)
		}

	case protocol.Message:
		if h.target != "" && ev.Level == protocol.LevelError && strings.Contains(ev.Text, h.target) {
			h.failed = true
		}

	case protocol.Stop:
		if ev.ID == h.id {
			h.flush(ctx)
			return dispatch.Close
		}
	}
	return dispatch.Continue
}

func (h *logHandler) limit() int {
	if h.failed {
		return h.sh.opts.LogHistoryFailure
	}
	return h.sh.opts.LogHistory
}

func (h *logHandler) flush(ctx *dispatch.Context) {
	lines := h.history.Lines()
	if n := h.limit(); n > 0 {
		lines = h.history.Last(n)
	}

	for i, line := range lines {
		prefix := logContinuation
		if i == len(lines)-1 {
			prefix = logTerminator
		}
		ctx.Println(style.Muted(prefix + line))
	}
}
