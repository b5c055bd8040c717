// Package log provides context-aware logging for pruner.
//
// The logger plays the part of an editor output channel: environment
// checks, fetch output and branch counts are written here, and external
// commands are echoed when verbose mode is on.
package log

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type ctxKey struct{}

// Logger provides output and verbose command logging.
// It is safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// New creates a new logger.
func New(out io.Writer, verbose bool) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out, verbose: verbose}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{out: io.Discard}
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context.
// Returns a no-op logger if none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Discard()
}

// Printf writes formatted output.
func (l *Logger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, format, args...)
}

// Println writes a line of output.
func (l *Logger) Println(args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, args...)
}

// Command logs an external command execution and returns a function that
// logs its duration. Only prints when verbose mode is enabled.
func (l *Logger) Command(dir, command string) func(time.Duration) {
	if !l.verbose {
		return func(time.Duration) {}
	}
	if dir != "" {
		l.Printf("[%s] $ %s\n", dir, command)
	} else {
		l.Printf("$ %s\n", command)
	}
	return func(d time.Duration) {
		l.Printf("  (%s)\n", d.Round(time.Millisecond))
	}
}

// Verbose returns true if verbose mode is enabled.
func (l *Logger) Verbose() bool {
	return l.verbose
}

// Writer returns the underlying writer.
func (l *Logger) Writer() io.Writer {
	return l.out
}
