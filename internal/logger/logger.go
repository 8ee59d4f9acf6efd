// Package logger provides levelled logging for paperchat.
// Debug, Info and Section output is shown only in verbose mode (--verbose);
// Warn and Error are always written so that skipped documents and cleanup
// failures stay visible.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func write(always bool, level, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !always && !verbose {
		return
	}
	fmt.Fprintf(output, level+prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write(false, "[DEBUG] ", "", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write(false, "[INFO] ", "", format, args...)
}

// Warn prints a warning.
func Warn(format string, args ...any) {
	write(true, "[WARN] ", "", format, args...)
}

// Error prints an error.
func Error(format string, args ...any) {
	write(true, "[ERROR] ", "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Scoped prefixes every message with a fixed tag, e.g. a turn ID.
type Scoped struct {
	prefix string
}

// With returns a logger that tags messages with "[tag] ".
func With(tag string) Scoped {
	return Scoped{prefix: "[" + tag + "] "}
}

// Debug prints a tagged message if verbose mode is enabled.
func (s Scoped) Debug(format string, args ...any) {
	write(false, "[DEBUG] ", s.prefix, format, args...)
}

// Info prints a tagged message if verbose mode is enabled.
func (s Scoped) Info(format string, args ...any) {
	write(false, "[INFO] ", s.prefix, format, args...)
}

// Warn prints a tagged warning.
func (s Scoped) Warn(format string, args ...any) {
	write(true, "[WARN] ", s.prefix, format, args...)
}

// Error prints a tagged error.
func (s Scoped) Error(format string, args ...any) {
	write(true, "[ERROR] ", s.prefix, format, args...)
}
