// Package version exposes the pix release version.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current version, with whitespace trimmed
func Get() string {
	return strings.TrimSpace(versionContent)
}

// Line is the version line printed by the binary called name.
func Line(name string) string {
	return name + " version " + Get()
}
