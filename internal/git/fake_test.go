package git

import (
	"context"
	"errors"
	"sync"
)

var errFake = errors.New("exit status 128")

// fakeRunner answers commands from a table. Commands without an entry
// succeed with empty output.
type fakeRunner struct {
	mu       sync.Mutex
	outputs  map[string]string
	failures map[string]bool
	calls    []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{}, failures: map[string]bool{}}
}

func (f *fakeRunner) on(command, stdout string) *fakeRunner {
	f.outputs[command] = stdout
	return f
}

func (f *fakeRunner) fail(command string) *fakeRunner {
	f.failures[command] = true
	return f
}

func (f *fakeRunner) Run(_ context.Context, dir, command string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, command)
	if f.failures[command] {
		return Result{Stderr: "fatal: " + command}, &ExecutionError{Command: command, Dir: dir, Stderr: "fatal", Err: errFake}
	}
	return Result{Stdout: f.outputs[command]}, nil
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRunner) called(command string) bool {
	for _, c := range f.Calls() {
		if c == command {
			return true
		}
	}
	return false
}

type note struct {
	level string
	msg   string
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *fakeNotifier) add(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{level, msg})
}

func (n *fakeNotifier) Info(msg string)    { n.add("info", msg) }
func (n *fakeNotifier) Warning(msg string) { n.add("warning", msg) }
func (n *fakeNotifier) Error(msg string)   { n.add("error", msg) }

func (n *fakeNotifier) count(level string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, x := range n.notes {
		if x.level == level {
			c++
		}
	}
	return c
}
