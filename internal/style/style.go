// Package style holds the text formatting shared by handlers: colors,
// store path shortening, progress bar segments and width-dependent layout.
// Everything here is a pure function of its arguments.
package style

import (
	"regexp"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
)

var (
	green  = lipgloss.Color("76")
	blue   = lipgloss.Color("69")
	yellow = lipgloss.Color("214")
	red    = lipgloss.Color("204")
	dim    = lipgloss.Color("243")
	bright = lipgloss.Color("75")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	NameStyle    = lipgloss.NewStyle().Foreground(blue)
	WarnStyle    = lipgloss.NewStyle().Foreground(yellow)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	MutedStyle   = lipgloss.NewStyle().Foreground(dim)
	RunningStyle = lipgloss.NewStyle().Foreground(bright)
)

func Success(s string) string { return SuccessStyle.Render(s) }
func Name(s string) string    { return NameStyle.Render(s) }
func Warn(s string) string    { return WarnStyle.Render(s) }
func Error(s string) string   { return ErrorStyle.Render(s) }
func Muted(s string) string   { return MutedStyle.Render(s) }

// Icons printed in front of summary lines.
const (
	IconBuilt      = "✓"
	IconBuiltGroup = "⯈"
	IconDownload   = "⬇"
)

// ConfigureColor selects the color profile for all styles. Non-interactive
// output gets plain text.
func ConfigureColor(interactive bool) {
	if interactive {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

var storePath = regexp.MustCompile(`^(?P<prefix>/nix/store/[a-z0-9]+)-(?P<name>.*?)(?:-(?P<version>\d{4}-\d{2}-\d{2}|[ab\d.]+))?(?:\.drv)?$`)

func splitTarget(raw string) (prefix, name, version string, ok bool) {
	m := storePath.FindStringSubmatch(raw)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// ShortTarget renders a store path as "name-version". Strings that are not
// store paths are returned highlighted as-is.
func ShortTarget(raw string) string {
	_, name, version, ok := splitTarget(raw)
	if !ok {
		return Warn(raw)
	}
	if version == "" {
		return Name(name)
	}
	return Name(name) + "-" + version
}

// FullTarget renders a store path with its hash prefix and the name
// highlighted.
func FullTarget(raw string) string {
	prefix, name, version, ok := splitTarget(raw)
	if !ok {
		return Warn(raw)
	}
	out := prefix + "-" + Name(name)
	if version != "" {
		out += "-" + version
	}
	return out
}

// Capitalize upper-cases the first letter of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Duration formats d with the coarsest unit that keeps it readable:
// "850ms", "12s", "3m5s".
func Duration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// Bytes formats n as binary units ("12 MiB").
func Bytes(n uint64) string {
	return humanize.IBytes(n)
}

// Count formats n with thousands separators.
func Count(n uint64) string {
	return humanize.Comma(int64(n))
}
