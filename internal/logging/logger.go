// Package logging provides the file-backed debug log used while the live
// display owns the terminal.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// pkgLogger is the logger behind Debugf.
var pkgLogger *DebugLogger
var pkgLoggerMu sync.RWMutex

// SetDefault installs l as the package-level logger used by Debugf and
// routes the standard library logger into it. Passing nil discards both.
func SetDefault(l *DebugLogger) {
	pkgLoggerMu.Lock()
	pkgLogger = l
	pkgLoggerMu.Unlock()

	if l == nil || l.file == nil {
		log.SetOutput(io.Discard)
		return
	}
	log.SetFlags(0)
	log.SetOutput(l)
}

// Debugf writes a message using the package-level logger.
func Debugf(format string, args ...any) {
	pkgLoggerMu.RLock()
	l := pkgLogger
	pkgLoggerMu.RUnlock()

	l.Log(format, args...)
}

// DebugLogger writes timestamped lines to a file. The zero value and a nil
// pointer are valid no-op loggers.
type DebugLogger struct {
	mu      sync.Mutex
	file    *os.File
	session string
}

// New creates a logger appending to path, creating parent directories.
// An empty path returns a no-op logger.
func New(path string) (*DebugLogger, error) {
	if path == "" {
		return &DebugLogger{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &DebugLogger{file: f, session: uuid.NewString()}
	l.Log("=== pix session %s started at %s ===", l.session, time.Now().Format(time.RFC3339))
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *DebugLogger {
	return &DebugLogger{}
}

// Session returns the id written in the log header, empty for a no-op logger.
func (l *DebugLogger) Session() string {
	if l == nil {
		return ""
	}
	return l.session
}

// Log writes a timestamped line.
func (l *DebugLogger) Log(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.file, "[%s] %s\n", time.Now().Format("15:04:05.000"), msg)
}

// Write lets the logger back a standard library *log.Logger.
func (l *DebugLogger) Write(p []byte) (int, error) {
	if l == nil || l.file == nil {
		return len(p), nil
	}
	n := len(p)
	if n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}
	l.Log("%s", p)
	return n, nil
}

// Close closes the log file.
func (l *DebugLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}
