package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Johannes-Berggren/BranchPruner/internal/config"
	"github.com/Johannes-Berggren/BranchPruner/internal/git"
	"github.com/Johannes-Berggren/BranchPruner/internal/locale"
	"github.com/Johannes-Berggren/BranchPruner/internal/log"
	"github.com/Johannes-Berggren/BranchPruner/internal/models"
	"github.com/Johannes-Berggren/BranchPruner/internal/provider"
	"github.com/Johannes-Berggren/BranchPruner/internal/webview"
)

// env is the state shared by every command: configuration, language and
// a context carrying the logger.
type env struct {
	ctx      context.Context
	cfg      config.Config
	dir      string
	messages locale.Messages
	renderer *webview.Renderer

	closers []io.Closer
}

// newEnv loads configuration and sets up logging. The terminal UI logs to
// --log-file; other commands log to stderr when --verbose is set.
func newEnv(ctx context.Context, stderr io.Writer) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dir := flagDir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
	}

	e := &env{cfg: cfg, dir: dir}

	logger := log.Discard()
	switch {
	case flagLogFile != "":
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		e.closers = append(e.closers, f)
		logger = log.New(f, flagVerbose)
	case flagVerbose:
		logger = log.New(stderr, true)
	}
	e.ctx = log.WithLogger(ctx, logger)

	tag := resolveLanguage(flagLang, cfg.Language, locale.FromEnv())
	e.messages = locale.For(tag)
	e.renderer = webview.New(e.messages.Chinese)

	return e, nil
}

// resolveLanguage picks the first non-empty tag: flag, config, environment.
func resolveLanguage(flag, configured, fromEnv string) string {
	for _, tag := range []string{flag, configured, fromEnv} {
		if tag != "" {
			return tag
		}
	}
	return ""
}

func (e *env) service(notify git.Notifier) *git.Service {
	return git.NewService(git.NewShellRunner(), git.Folders{e.dir}, notify, git.Options{
		TrunkBranches: e.cfg.TrunkBranches,
		Remote:        e.cfg.Remote,
	})
}

func (e *env) provider(svc provider.BranchService, surface provider.Surface) *provider.Provider {
	return provider.New(svc, surface, e.renderer, e.messages,
		provider.WithConfirmPreview(e.cfg.ConfirmPreview))
}

func (e *env) Close() error {
	var first error
	for _, c := range e.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// checkEnvironment turns the service's environment errors into the
// localized messages the screens show.
func (e *env) checkEnvironment(svc provider.BranchService) error {
	_, err := svc.CheckEnvironment(e.ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, git.ErrToolNotInstalled):
		return errors.New(e.messages.GitNotInstalled)
	case errors.Is(err, git.ErrNoWorkspace), errors.Is(err, git.ErrNotRepository):
		return fmt.Errorf("%s (%s)", e.messages.NotGitRepo, e.dir)
	default:
		return fmt.Errorf("%s: %w", e.messages.FailedToCheck, err)
	}
}

// loadBranches checks the environment and lists the branches.
func (e *env) loadBranches(svc provider.BranchService) ([]models.Branch, error) {
	if err := e.checkEnvironment(svc); err != nil {
		return nil, err
	}
	branches, err := svc.ListBranches(e.ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.messages.FailedToRefresh, err)
	}
	return branches, nil
}

// consoleNotifier prints service notifications to a terminal stream.
type consoleNotifier struct {
	w io.Writer
}

func (n consoleNotifier) Info(msg string) {
	fmt.Fprintln(n.w, infoStyle.Render(msg))
}

func (n consoleNotifier) Warning(msg string) {
	fmt.Fprintln(n.w, warnStyle.Render("warning: "+msg))
}

func (n consoleNotifier) Error(msg string) {
	fmt.Fprintln(n.w, errorStyle.Render("error: "+msg))
}
