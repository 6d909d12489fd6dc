// Package logger provides process-wide logging for Warraq.
// CLI runs get a terse text handler on stderr with debug messages
// gated by the --verbose flag; server runs switch to JSON lines so
// output stays machine-readable under collection.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu       sync.RWMutex
	level    = new(slog.LevelVar)
	output   io.Writer = os.Stderr
	jsonMode bool
	log      = build(os.Stderr, false)
)

func build(w io.Writer, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose returns true if debug logging is enabled.
func IsVerbose() bool {
	return level.Level() <= slog.LevelDebug
}

// UseJSON switches output to JSON lines. Used by the server.
func UseJSON() {
	mu.Lock()
	defer mu.Unlock()
	jsonMode = true
	log = build(output, true)
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = build(w, jsonMode)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	current().Debug(fmt.Sprintf(format, args...))
}

// Section marks a pipeline phase in the debug log.
func Section(name string) {
	current().Debug("=== " + name + " ===")
}

// Info prints an informational message.
func Info(format string, args ...any) {
	current().Info(fmt.Sprintf(format, args...))
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	current().Warn(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func Error(format string, args ...any) {
	current().Error(fmt.Sprintf(format, args...))
}
