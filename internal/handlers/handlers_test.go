package handlers

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/ShayCichocki/pix/internal/dispatch"
	"github.com/ShayCichocki/pix/internal/protocol"
	"github.com/ShayCichocki/pix/internal/tui"
)

// harness wires seeded handlers to a Plain surface and a fake clock.
type harness struct {
	t       *testing.T
	out     *bytes.Buffer
	surface *tui.Plain
	engine  *dispatch.Engine
	tally   *Tally
	now     time.Time
	seeds   int
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{t: t, out: &bytes.Buffer{}, tally: &Tally{}, now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	h.surface = tui.NewPlain(h.out)
	h.engine = dispatch.New(h.surface, dispatch.WithWidth(120), dispatch.WithClock(func() time.Time { return h.now }))
	Seed(h.engine, opts, h.tally)
	h.seeds = h.engine.Len()
	return h
}

func (h *harness) send(events ...protocol.Event) {
	for _, ev := range events {
		h.engine.Dispatch(ev)
		h.now = h.now.Add(time.Second)
	}
}

// printed returns the lines printed so far without styling.
func (h *harness) printed() []string {
	text := strings.TrimRight(ansi.Strip(h.out.String()), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func buildStart(id, parent protocol.StepID, target string) protocol.Start {
	return protocol.Start{
		ID: id, Parent: parent, Level: protocol.LevelInfo, Kind: protocol.ActionBuild,
		Fields: protocol.BuildFields{Target: target, V1: 1, V2: 1},
	}
}

func groupStart(id protocol.StepID, kind protocol.ActionKind) protocol.Start {
	return protocol.Start{ID: id, Kind: kind, Fields: protocol.NoFields{}}
}

func logLine(id protocol.StepID, text string) protocol.Result {
	return protocol.Result{ID: id, Fields: protocol.BuildLogLine{Text: text}}
}

func TestBuildGroup_ChildSummaryBeforeGroupSummary(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.send(
		groupStart(1, protocol.ActionBuilds),
		buildStart(2, 1, "/nix/store/abc-hello-2.12.drv"),
		protocol.Stop{ID: 2},
		protocol.Stop{ID: 1},
	)

	lines := h.printed()
	if len(lines) != 2 {
		t.Fatalf("expected 2 summary lines, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "✓ Built /nix/store/abc-hello-2.12") {
		t.Errorf("first line = %q, want build summary", lines[0])
	}
	if !strings.HasPrefix(lines[1], "⯈ Built 1 derivations") {
		t.Errorf("second line = %q, want group summary", lines[1])
	}
	if h.engine.Len() != h.seeds {
		t.Errorf("handler list has %d entries, want only the %d seeds", h.engine.Len(), h.seeds)
	}
	if h.surface.Live() != 0 {
		t.Errorf("expected all slots released, %d live", h.surface.Live())
	}
	if got := h.tally.Snapshot().Builds; got != 1 {
		t.Errorf("tally builds = %d, want 1", got)
	}
}

func TestBuildGroup_EmptyGroupPrintsNothing(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	ev, err := protocol.DecodeLine(`@nix {"action":"start","id":1,"level":0,"parent":0,"text":"t","type":104}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	h.send(ev)
	if h.engine.Len() != h.seeds+1 {
		t.Fatalf("expected group handler plugged, Len() = %d", h.engine.Len())
	}

	ev, err = protocol.DecodeLine(`@nix {"action":"stop","id":1}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	h.send(ev)

	if lines := h.printed(); len(lines) != 0 {
		t.Errorf("expected no summary for an empty group, got %q", lines)
	}
	if h.engine.Len() != h.seeds {
		t.Errorf("group handler not closed, Len() = %d", h.engine.Len())
	}
}

func TestBuildGroup_RepeatedStopIsHarmless(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.send(
		groupStart(1, protocol.ActionBuilds),
		buildStart(2, 1, "/nix/store/abc-hello.drv"),
		protocol.Stop{ID: 2},
		protocol.Stop{ID: 1},
	)
	before := len(h.printed())

	h.send(protocol.Stop{ID: 1}, protocol.Stop{ID: 2})
	if after := len(h.printed()); after != before {
		t.Errorf("repeated stops printed %d more lines", after-before)
	}
}

func TestResult_UnknownIDIsNoop(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.send(
		progress(42, 5, 10),
		logLine(42, "orphan output"),
		protocol.Result{ID: 42, Fields: protocol.SetPhase{Phase: "buildPhase"}},
	)

	if lines := h.printed(); len(lines) != 0 {
		t.Errorf("expected nothing printed, got %q", lines)
	}
	if h.engine.Len() != h.seeds {
		t.Errorf("handler list has %d entries, want only the %d seeds", h.engine.Len(), h.seeds)
	}
	if h.surface.Live() != 0 {
		t.Errorf("expected no live slots, %d live", h.surface.Live())
	}
}

func TestBuildGroup_ProgressBar(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.send(
		groupStart(1, protocol.ActionBuilds),
		buildStart(2, 1, "/nix/store/abc-hello-2.12.drv"),
		protocol.Result{ID: 1, Fields: protocol.Progress{Done: 1, Expected: 4, Running: 1}},
	)

	bars := h.surface.Bars()
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	text := ansi.Strip(bars[0].Text)
	if text != "Build hello-2.12" {
		t.Errorf("bar text = %q", text)
	}
	// 120 columns: a 40 cell bar, 10 done and 10 running.
	wantBar := "    1/4      [" + strings.Repeat("#", 10) + strings.Repeat("-", 10) + strings.Repeat(" ", 20) + "]"
	if got := ansi.Strip(bars[0].Bar); got != wantBar {
		t.Errorf("bar = %q, want %q", got, wantBar)
	}

	h.send(protocol.Stop{ID: 1})
	if lines := h.printed(); len(lines) != 1 || !strings.HasPrefix(lines[0], "⯈ Built 4 derivations") {
		t.Errorf("summary = %q", lines)
	}
}

func TestBuildGroup_ZeroExpectedBar(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	h.send(
		groupStart(1, protocol.ActionBuilds),
		protocol.Result{ID: 1, Fields: protocol.Progress{Done: 5, Expected: 0}},
	)

	bar := ansi.Strip(h.surface.Bars()[0].Bar)
	if strings.Contains(bar, "#") {
		t.Errorf("expected an empty bar when the total is unknown, got %q", bar)
	}
}

func TestBuildGroup_FirstGroupClaimsBuild(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.send(
		groupStart(1, protocol.ActionBuilds),
		groupStart(2, protocol.ActionBuilds),
		buildStart(3, 1, "/nix/store/abc-hello.drv"),
		protocol.Stop{ID: 3},
	)

	var built int
	for _, line := range h.printed() {
		if strings.HasPrefix(line, "✓ Built") {
			built++
		}
	}
	if built != 1 {
		t.Errorf("expected the build to be followed once, got %d summaries", built)
	}
}

func TestLog_FlushesTreeOnStop(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.send(
		groupStart(1, protocol.ActionBuilds),
		buildStart(2, 1, "/nix/store/abc-hello.drv"),
		logLine(2, "configuring"),
		logLine(2, "building"),
		logLine(2, "installing"),
		protocol.Stop{ID: 2},
	)

	lines := h.printed()
	want := []string{"│ configuring", "│ building", "└ installing"}
	if len(lines) < len(want) {
		t.Fatalf("printed = %q", lines)
	}
	// The build summary comes first: the build handler is ahead of its log.
	for i, w := range want {
		if lines[i+1] != w {
			t.Errorf("line %d = %q, want %q", i+1, lines[i+1], w)
		}
	}
}

func TestLog_MirrorsIntoWindow(t *testing.T) {
	opts := DefaultOptions()
	opts.LogWindow = 2
	h := newHarness(t, opts)

	h.send(
		groupStart(1, protocol.ActionBuilds),
		buildStart(2, 1, "/nix/store/abc-a.drv"),
		buildStart(3, 1, "/nix/store/abc-b.drv"),
		logLine(2, "a1"),
		logLine(3, "b1"),
		logLine(2, "a2"),
	)

	rendered := ansi.Strip(h.surface.Render(120, "nix build", h.now))
	if strings.Contains(rendered, "a1") || !strings.Contains(rendered, "b1") || !strings.Contains(rendered, "a2") {
		t.Errorf("expected the window to show the 2 latest lines, got:\n%s", rendered)
	}
}

func TestLog_HistoryLimits(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		failure int
		fail    bool
		want    int
	}{
		{"bounded success", 2, 4, false, 2},
		{"bounded failure", 2, 4, true, 4},
		{"unbounded success", 0, 4, false, 6},
		{"unbounded failure", 2, 0, true, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.LogHistory = tt.size
			opts.LogHistoryFailure = tt.failure
			h := newHarness(t, opts)

			h.send(groupStart(1, protocol.ActionBuilds), buildStart(2, 1, "/nix/store/abc-hello.drv"))
			for i := 0; i < 6; i++ {
				h.send(logLine(2, "line"))
			}
			if tt.fail {
				h.send(protocol.Message{Level: protocol.LevelError, Text: "error: builder for '/nix/store/abc-hello.drv' failed with exit code 1"})
			}
			h.out.Reset()
			h.send(protocol.Stop{ID: 2})

			var flushed int
			for _, line := range h.printed() {
				if strings.HasPrefix(line, "│ ") || strings.HasPrefix(line, "└ ") {
					flushed++
				}
			}
			if flushed != tt.want {
				t.Errorf("flushed %d lines, want %d", flushed, tt.want)
			}
		})
	}
}

func TestBuild_FailureIsReported(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	h.send(
		groupStart(1, protocol.ActionBuilds),
		buildStart(2, 1, "/nix/store/abc-hello.drv"),
		protocol.Message{Level: protocol.LevelError, Text: "error: builder for '/nix/store/abc-hello.drv' failed"},
		protocol.Stop{ID: 2},
	)

	var found bool
	for _, line := range h.printed() {
		if strings.HasPrefix(line, "✗ Failed /nix/store/abc-hello") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a failure line, got %q", h.printed())
	}
	if snap := h.tally.Snapshot(); snap.FailedBuilds != 1 {
		t.Errorf("failed builds = %d, want 1", snap.FailedBuilds)
	}
}

func copyStart(id protocol.StepID, path string) protocol.Start {
	return protocol.Start{ID: id, Kind: protocol.ActionCopyPath,
		Fields: protocol.CopyPathFields{Path: path, Origin: "https://cache.nixos.org", Destination: "local"}}
}

func transferStart(id, parent protocol.StepID) protocol.Start {
	return protocol.Start{ID: id, Parent: parent, Kind: protocol.ActionFileTransfer,
		Fields: protocol.FileTransferFields{Target: "https://cache.nixos.org/nar/x.nar.xz"}}
}

func progress(id protocol.StepID, done, expected uint64) protocol.Result {
	return protocol.Result{ID: id, Fields: protocol.Progress{Done: done, Expected: expected}}
}

func TestTransfer_LargeDownloadGetsBar(t *testing.T) {
	opts := DefaultOptions()
	opts.SummaryDownload = true
	h := newHarness(t, opts)

	h.send(
		copyStart(10, "/nix/store/abc-firefox-120.0"),
		transferStart(11, 10),
		progress(11, 1<<20, 64<<20),
	)
	if got := len(h.surface.Bars()); got != 1 {
		t.Fatalf("expected 1 bar for a large transfer, got %d", got)
	}

	h.send(progress(11, 64<<20, 64<<20), protocol.Stop{ID: 11})
	if h.surface.Live() != 0 {
		t.Errorf("expected the bar released on stop")
	}
	lines := h.printed()
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "⬇ Downloaded /nix/store/abc-firefox-120.0 (64 MiB,") {
		t.Errorf("summary = %q", lines)
	}
	if snap := h.tally.Snapshot(); snap.Downloads != 1 || snap.DownloadedBytes != 64<<20 {
		t.Errorf("tally = %+v", snap)
	}
}

func TestTransfer_SmallDownloadStaysHidden(t *testing.T) {
	opts := DefaultOptions()
	opts.SummaryDownload = true
	h := newHarness(t, opts)

	h.send(
		copyStart(10, "/nix/store/abc-tiny"),
		transferStart(11, 10),
		progress(11, 10, 1024),
	)
	if got := h.surface.Live(); got != 0 {
		t.Errorf("expected no bar for a small transfer, got %d slots", got)
	}

	h.send(protocol.Stop{ID: 11})
	if lines := h.printed(); len(lines) != 1 || !strings.HasPrefix(lines[0], "⬇ Downloaded /nix/store/abc-tiny") {
		t.Errorf("expected a summary for a hidden transfer, got %q", lines)
	}
}

func TestTransfer_NoSummaryWithoutProgress(t *testing.T) {
	opts := DefaultOptions()
	opts.SummaryDownload = true
	h := newHarness(t, opts)

	h.send(copyStart(10, "/nix/store/abc-tiny"), transferStart(11, 10), protocol.Stop{ID: 11}, protocol.Stop{ID: 10})
	if lines := h.printed(); len(lines) != 0 {
		t.Errorf("expected no summary, got %q", lines)
	}
	if h.engine.Len() != h.seeds {
		t.Errorf("expected all download handlers closed, Len() = %d", h.engine.Len())
	}
}

func TestWaitForTransfer_ClosesWithCopy(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	h.send(copyStart(10, "/nix/store/abc-local"), protocol.Stop{ID: 10})
	if h.engine.Len() != h.seeds {
		t.Errorf("expected handlers of a copy without transfer closed, Len() = %d", h.engine.Len())
	}
}

func TestDownloadsGroup_Summary(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.send(
		groupStart(1, protocol.ActionCopyPaths),
		protocol.Result{ID: 1, Fields: protocol.SetExpected{TargetKind: protocol.ActionFileTransfer, Expected: 3072}},
		copyStart(10, "/nix/store/abc-a"),
		transferStart(11, 10),
		progress(11, 2048, 2048),
		progress(10, 4096, 4096),
		protocol.Stop{ID: 11},
		protocol.Stop{ID: 10},
		protocol.Result{ID: 1, Fields: protocol.Progress{Done: 1, Expected: 1}},
	)

	bars := h.surface.Bars()
	if len(bars) != 1 || !strings.HasPrefix(ansi.Strip(bars[0].Text), "Downloaded (1/1)") {
		t.Fatalf("bars = %+v", bars)
	}

	h.send(protocol.Stop{ID: 1})
	lines := h.printed()
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "⬇ Downloaded 1 derivations (2.0 KiB downloaded, 4.0 KiB unpacked,") {
		t.Errorf("summary = %q", lines)
	}
	if h.engine.Len() != h.seeds {
		t.Errorf("expected the group closed, Len() = %d", h.engine.Len())
	}
}

func TestDownloadsGroup_ClosesWithoutDownloads(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	h.send(groupStart(1, protocol.ActionCopyPaths), protocol.Stop{ID: 1})
	if lines := h.printed(); len(lines) != 0 {
		t.Errorf("expected no summary, got %q", lines)
	}
	if h.engine.Len() != h.seeds || h.surface.Live() != 0 {
		t.Errorf("expected the group closed and released")
	}
}

func TestUnknown_SpinnerUntilStop(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	h.send(protocol.Start{ID: 5, Kind: protocol.ActionUnknown, Text: "querying info", Fields: protocol.NoFields{}})

	bars := h.surface.Bars()
	if len(bars) != 1 || bars[0].Text != "Querying info" || !bars[0].Spinner {
		t.Fatalf("bars = %+v", bars)
	}

	h.send(logLine(5, "detail"), protocol.Stop{ID: 5})
	if h.surface.Live() != 0 {
		t.Errorf("expected spinner released")
	}
	if lines := h.printed(); len(lines) != 1 || lines[0] != "└ detail" {
		t.Errorf("printed = %q", lines)
	}
}

func TestMessage_Printed(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	h.send(protocol.Message{Level: protocol.LevelWarn, Text: "warning: Git tree is dirty"})
	if lines := h.printed(); len(lines) != 1 || lines[0] != "warning: Git tree is dirty" {
		t.Errorf("printed = %q", lines)
	}
}

func TestDebugGauge(t *testing.T) {
	opts := DefaultOptions()
	opts.Debug = true
	h := newHarness(t, opts)

	h.send(groupStart(1, protocol.ActionBuilds), protocol.Stop{ID: 1}, protocol.Stop{ID: 1})

	bars := h.surface.Bars()
	if len(bars) != 1 {
		t.Fatalf("expected only the debug bar, got %d", len(bars))
	}
	if got := ansi.Strip(bars[0].Text); got != "🔧 Parsed 3 lines of log" {
		t.Errorf("text = %q", got)
	}
	if got := ansi.Strip(bars[0].Bar); !strings.HasPrefix(got, "    6/7 ") {
		t.Errorf("bar = %q, want current 6 of peak 7", got)
	}
}

func TestResize_RedrawsBars(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	h.send(groupStart(1, protocol.ActionBuilds), protocol.Result{ID: 1, Fields: protocol.Progress{Done: 1, Expected: 2}})

	h.engine.Resize(60)
	h.engine.ApplyResize()

	bar := ansi.Strip(h.surface.Bars()[0].Bar)
	if want := "    1/2      [" + strings.Repeat("#", 10) + strings.Repeat(" ", 10) + "]"; bar != want {
		t.Errorf("bar after resize = %q, want %q", bar, want)
	}
}
