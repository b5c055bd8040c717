package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/Johannes-Berggren/BranchPruner/internal/log"
)

// Result holds the captured output of one command.
type Result struct {
	Stdout string
	Stderr string
}

// ExecutionError is returned when a command could not be spawned or exited
// non-zero.
type ExecutionError struct {
	Command string
	Dir     string
	Stderr  string
	Err     error
}

func (e *ExecutionError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return fmt.Sprintf("%s: %s", e.Command, msg)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Runner executes a command line through a system shell.
type Runner interface {
	Run(ctx context.Context, dir, command string) (Result, error)
}

type shell struct {
	path string
	flag string
}

// ShellRunner runs commands the way a terminal would, with a forced UTF-8
// locale and interactive credential prompts disabled.
type ShellRunner struct {
	shells []shell
	env    []string
}

// NewShellRunner creates a runner for the current platform.
func NewShellRunner() *ShellRunner {
	return newShellRunner(runtime.GOOS, os.Environ())
}

func newShellRunner(goos string, base []string) *ShellRunner {
	return &ShellRunner{shells: shellsFor(goos), env: Environment(goos, base)}
}

// Environment returns base with the variables every git invocation needs.
func Environment(goos string, base []string) []string {
	env := append([]string{}, base...)
	env = append(env,
		"LANG=en_US.UTF-8",
		"LC_ALL=en_US.UTF-8",
		"GIT_TERMINAL_PROMPT=0",
	)
	if goos == "windows" {
		env = append(env, "FORCE_COLOR=1", "CHCP=65001")
	}
	return env
}

// shellsFor lists the shells to try in order. On Windows a POSIX shell is
// preferred and cmd.exe is the single fallback.
func shellsFor(goos string) []shell {
	if goos == "windows" {
		return []shell{{"bash.exe", "-c"}, {"cmd.exe", "/C"}}
	}
	return []shell{{"/bin/sh", "-c"}}
}

// Run executes command in dir. An empty dir means the current directory.
// On failure the output captured by the last attempt is returned with the
// error.
func (r *ShellRunner) Run(ctx context.Context, dir, command string) (Result, error) {
	var (
		res Result
		err error
	)
	shells := r.shells
	if len(shells) == 0 {
		shells = shellsFor(runtime.GOOS)
	}
	for i, sh := range shells {
		res, err = r.runShell(ctx, sh, dir, command)
		if err == nil {
			return res, nil
		}
		if i > 0 {
			log.FromContext(ctx).Printf("Git command failed (fallback): %v\n", err)
		}
	}
	return res, err
}

func (r *ShellRunner) runShell(ctx context.Context, sh shell, dir, command string) (Result, error) {
	done := log.FromContext(ctx).Command(dir, command)
	start := time.Now()
	defer func() { done(time.Since(start)) }()

	cmd := exec.CommandContext(ctx, sh.path, sh.flag, command)
	cmd.Dir = dir
	cmd.Env = r.env
	hideWindow(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return res, &ExecutionError{Command: command, Dir: dir, Stderr: res.Stderr, Err: err}
	}
	return res, nil
}
