package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ShayCichocki/pix/internal/stream"
	"github.com/ShayCichocki/pix/internal/wrapper"
)

const (
	startBuilds = `@nix {"action":"start","id":1,"level":0,"parent":0,"text":"","type":104}`
	startBuild  = `@nix {"action":"start","id":2,"level":3,"parent":1,"text":"building","type":105,"fields":["/nix/store/abc-hello-1.0.drv","",1,1]}`
	logLine     = `@nix {"action":"result","id":2,"type":101,"fields":["make: done"]}`
	stopBuild   = `@nix {"action":"stop","id":2}`
	stopBuilds  = `@nix {"action":"stop","id":1}`
)

// newTestApp returns an App with buffered streams and an isolated config.
func newTestApp(t *testing.T, m Mode, stdin string) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	var stdout, stderr bytes.Buffer
	return &App{
		Mode:   m,
		Runner: wrapper.NewRunner(),
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	}, &stdout, &stderr
}

// emit returns a shell script printing lines to stderr.
func emit(lines ...string) string {
	var b strings.Builder
	b.WriteString("printf '%s\\n'")
	for _, line := range lines {
		b.WriteString(" '" + line + "'")
	}
	b.WriteString(" >&2")
	return b.String()
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		forwarded []string
		check     func(t *testing.T, inv *invocation)
	}{
		{
			name:      "everything else is forwarded",
			args:      []string{"nix", "build", "-L", ".#hello"},
			forwarded: []string{"nix", "build", "-L", ".#hello"},
		},
		{
			name:      "separate and inline values",
			args:      []string{"--pix-record", "out.log", "build", "--pix-log-window=3"},
			forwarded: []string{"build"},
			check: func(t *testing.T, inv *invocation) {
				if inv.record != "out.log" {
					t.Errorf("record = %q, want out.log", inv.record)
				}
				if v, _ := inv.flags.GetInt("pix-log-window"); v != 3 {
					t.Errorf("pix-log-window = %d, want 3", v)
				}
			},
		},
		{
			name:      "optional values do not swallow the next argument",
			args:      []string{"--pix-show-config", "--pix-history", "build"},
			forwarded: []string{"build"},
			check: func(t *testing.T, inv *invocation) {
				if inv.showConfig != "toml" {
					t.Errorf("showConfig = %q, want toml", inv.showConfig)
				}
				if inv.history != defaultHistoryRows {
					t.Errorf("history = %d, want %d", inv.history, defaultHistoryRows)
				}
			},
		},
		{
			name:      "bool flags stand alone",
			args:      []string{"--pix-debug", "build"},
			forwarded: []string{"build"},
			check: func(t *testing.T, inv *invocation) {
				if v, _ := inv.flags.GetBool("pix-debug"); !v {
					t.Error("expected pix-debug to be set")
				}
			},
		},
		{
			name:      "double dash stops flag parsing",
			args:      []string{"run", "--", "--pix-debug"},
			forwarded: []string{"run", "--", "--pix-debug"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := parseArgs("pix", tt.args)
			if err != nil {
				t.Fatalf("parseArgs failed: %v", err)
			}
			if !slices.Equal(inv.forwarded, tt.forwarded) {
				t.Errorf("forwarded = %q, want %q", inv.forwarded, tt.forwarded)
			}
			if tt.check != nil {
				tt.check(t, inv)
			}
		})
	}
}

func TestParseArgs_UnknownPixFlag(t *testing.T) {
	if _, err := parseArgs("pix", []string{"--pix-bogus"}); err == nil {
		t.Error("expected an error for an unknown --pix- flag")
	}
}

func TestExecute_WrapsProgram(t *testing.T) {
	app, stdout, stderr := newTestApp(t, ModePix, "")

	script := "echo /nix/store/abc-hello-1.0; " +
		emit(startBuilds, startBuild, logLine, stopBuild, stopBuilds)

	code := app.Execute(context.Background(), []string{"sh", "-c", script})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}

	if stdout.String() != "/nix/store/abc-hello-1.0\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	for _, want := range []string{"✓ Built /nix/store/abc-hello-1.0", "└ make: done", "⯈ Built 1 derivations"} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("expected %q in stderr:\n%s", want, stderr)
		}
	}
}

func TestExecute_MirrorsExitCode(t *testing.T) {
	app, _, stderr := newTestApp(t, ModePix, "")

	code := app.Execute(context.Background(), []string{"--pix-command", "sh", "-c", "exit 3"})
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if !strings.Contains(stderr.String(), "exit code 3") {
		t.Errorf("expected the exit code in stderr:\n%s", stderr)
	}
}

func TestExecute_StrictAbortsOnBadLine(t *testing.T) {
	app, _, stderr := newTestApp(t, ModePix, "")

	bad := `@nix {"action":"result","id":1,"type":109,"fields":[]}`
	code := app.Execute(context.Background(), []string{"--pix-strict", "sh", "-c", emit(bad)})
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "in line:") {
		t.Errorf("expected the offending line in stderr:\n%s", stderr)
	}
}

func TestExecute_LenientPrintsBadLine(t *testing.T) {
	app, _, stderr := newTestApp(t, ModePix, "")

	bad := `@nix {"action":"result","id":1,"type":109,"fields":[]}`
	if code := app.Execute(context.Background(), []string{"sh", "-c", emit(bad)}); code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stderr.String(), bad) {
		t.Errorf("expected the raw line in stderr:\n%s", stderr)
	}
}

func TestExecute_Stdin(t *testing.T) {
	input := strings.Join([]string{startBuilds, startBuild, stopBuild, stopBuilds, "trailing text"}, "\n") + "\n"
	app, _, stderr := newTestApp(t, ModePix, input)

	if code := app.Execute(context.Background(), []string{}); code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	for _, want := range []string{"✓ Built /nix/store/abc-hello-1.0", "trailing text"} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("expected %q in stderr:\n%s", want, stderr)
		}
	}
}

func TestExecute_NilArgsIgnoreProcessArgs(t *testing.T) {
	app, _, stderr := newTestApp(t, ModePix, startBuilds+"\n"+stopBuilds+"\nplain text\n")

	if code := app.Execute(context.Background(), nil); code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stderr.String(), "plain text") {
		t.Errorf("expected stdin mode output in stderr:\n%s", stderr)
	}
}

func TestExecute_Records(t *testing.T) {
	app, _, stderr := newTestApp(t, ModePix, "")
	path := filepath.Join(t.TempDir(), "run.log")

	code := app.Execute(context.Background(), []string{"--pix-record", path, "sh", "-c", "echo out; echo err >&2"})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}

	var texts []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		rec, err := stream.ParseRecord(line)
		if err != nil {
			t.Fatalf("ParseRecord(%q) failed: %v", line, err)
		}
		texts = append(texts, rec.Channel.String()+":"+rec.Text)
	}
	slices.Sort(texts)
	if want := []string{"stderr:err", "stdout:out"}; !slices.Equal(texts, want) {
		t.Errorf("records = %q, want %q", texts, want)
	}
}

func TestExecute_History(t *testing.T) {
	app, stdout, stderr := newTestApp(t, ModePix, "")
	db := filepath.Join(t.TempDir(), "history.db")

	script := emit(startBuilds, startBuild, stopBuild, stopBuilds)
	code := app.Execute(context.Background(), []string{"--pix-save-history", "--pix-history-path", db, "sh", "-c", script})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}

	code = app.Execute(context.Background(), []string{"--pix-history-path=" + db, "--pix-history=5"})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	for _, want := range []string{"sh -c", "succeeded", "Builds"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("expected %q in history listing:\n%s", want, stdout)
		}
	}
}

func TestExecute_Version(t *testing.T) {
	app, stdout, _ := newTestApp(t, ModePinix, "")

	if code := app.Execute(context.Background(), []string{"--pix-version"}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "pinix version ") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestExecute_ShowConfig(t *testing.T) {
	app, stdout, _ := newTestApp(t, ModePix, "")

	if code := app.Execute(context.Background(), []string{"--pix-log-window=4", "--pix-show-config=yaml"}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "size: 4") {
		t.Errorf("expected the flag value in:\n%s", stdout)
	}
}

func TestCommand_FixedProgram(t *testing.T) {
	app, _, _ := newTestApp(t, ModePixosRebuild, "")

	inv, err := parseArgs("pixos-rebuild", []string{"switch", "--flake", "."})
	if err != nil {
		t.Fatal(err)
	}
	c, ok := app.command(inv)
	if !ok {
		t.Fatal("expected a command")
	}
	if c.Name != "nixos-rebuild" || !slices.Equal(c.Args, []string{"switch", "--flake", "."}) {
		t.Errorf("command = %+v", c)
	}
}
