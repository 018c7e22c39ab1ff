package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/ShayCichocki/pix/internal/style"
)

// headerLine is the separator drawn above the live region while a command
// runs. Long commands are cut so the line never wraps.
func headerLine(width int, command string) string {
	text := "·· Running " + command + " "
	if width > 4 && lipgloss.Width(text) > width-2 {
		text = ansi.Truncate(text, width-3, "…") + " "
	}
	pad := max(width-lipgloss.Width(text), 2)
	return style.Muted(text + strings.Repeat("·", pad))
}
