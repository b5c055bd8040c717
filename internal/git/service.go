// Package git lists and deletes local branches by shelling out to the git
// command-line tool.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Johannes-Berggren/BranchPruner/internal/log"
	"github.com/Johannes-Berggren/BranchPruner/internal/models"
)

// Environment check failures. They short-circuit to an error screen.
var (
	ErrToolNotInstalled = errors.New("git is not installed or not in PATH")
	ErrNoWorkspace      = errors.New("no workspace folder is open")
	ErrNotRepository    = errors.New("not a git repository")
)

// Workspace supplies the folders the user has open. The first one is the
// working directory.
type Workspace interface {
	Folders() []string
}

// Folders is a fixed Workspace.
type Folders []string

// Folders implements Workspace.
func (f Folders) Folders() []string { return f }

// Notifier surfaces short messages to the user.
type Notifier interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Options configures a Service.
type Options struct {
	TrunkBranches []string // candidate trunk names, checked in order
	Remote        string   // remote whose prefix is stripped from remote branches
}

// Service runs the fixed sequence of git commands behind the branch list.
type Service struct {
	runner    Runner
	workspace Workspace
	notify    Notifier
	trunks    []string
	remote    string
}

// NewService creates a branch service.
func NewService(runner Runner, workspace Workspace, notify Notifier, opts Options) *Service {
	trunks := opts.TrunkBranches
	if len(trunks) == 0 {
		trunks = []string{"main", "master"}
	}
	remote := opts.Remote
	if remote == "" {
		remote = "origin"
	}
	return &Service{
		runner:    runner,
		workspace: workspace,
		notify:    notify,
		trunks:    trunks,
		remote:    remote,
	}
}

// CheckToolInstalled reports whether `git --version` succeeds. A missing
// binary and a failing one are both reported as not installed; the log
// tells them apart.
func (s *Service) CheckToolInstalled(ctx context.Context) bool {
	if _, err := s.runner.Run(ctx, "", cmdVersion); err != nil {
		l := log.FromContext(ctx)
		if notFound(err) {
			l.Printf("Git not found: %v\n", err)
		} else {
			l.Printf("Git version check failed: %v\n", err)
		}
		return false
	}
	return true
}

// notFound reports whether err means the command could not be found,
// either by exec itself or by the shell (exit status 127).
func notFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 127
}

// IsRepository reports whether dir is inside a git repository.
func (s *Service) IsRepository(ctx context.Context, dir string) bool {
	_, err := s.runner.Run(ctx, dir, cmdGitDir)
	return err == nil
}

// WorkingDirectory returns the first workspace folder. When none is open
// it tells the user and returns false.
func (s *Service) WorkingDirectory(ctx context.Context) (string, bool) {
	l := log.FromContext(ctx)
	var folders []string
	if s.workspace != nil {
		folders = s.workspace.Folders()
	}
	if len(folders) == 0 || folders[0] == "" {
		l.Println("No workspace folder found")
		s.notifyError("Please open a folder first")
		return "", false
	}
	l.Printf("Working directory: %s\n", folders[0])
	return folders[0], true
}

// CheckEnvironment runs the activation checks in order and returns the
// working directory, or one of ErrToolNotInstalled, ErrNoWorkspace and
// ErrNotRepository.
func (s *Service) CheckEnvironment(ctx context.Context) (string, error) {
	if !s.CheckToolInstalled(ctx) {
		return "", ErrToolNotInstalled
	}
	dir, ok := s.WorkingDirectory(ctx)
	if !ok {
		return "", ErrNoWorkspace
	}
	if !s.IsRepository(ctx, dir) {
		return "", ErrNotRepository
	}
	return dir, nil
}

// ListBranches returns every local branch. It returns an empty slice,
// without error, when there is no working directory, git is missing or
// the directory is not a repository.
func (s *Service) ListBranches(ctx context.Context) ([]models.Branch, error) {
	dir, ok := s.WorkingDirectory(ctx)
	if !ok {
		return []models.Branch{}, nil
	}
	if !s.CheckToolInstalled(ctx) || !s.IsRepository(ctx, dir) {
		return []models.Branch{}, nil
	}

	s.fetchRemote(ctx, dir)
	return s.allBranches(ctx, dir)
}

// fetchRemote refreshes remote-tracking refs. Failure only warns: the
// listing continues with possibly stale remote data.
func (s *Service) fetchRemote(ctx context.Context, dir string) {
	l := log.FromContext(ctx)
	l.Println("Fetching from remote...")

	res, err := s.runner.Run(ctx, dir, cmdFetchPrune)
	if err != nil {
		l.Printf("Fetch error: %v\n", err)
		s.notifyWarning("Failed to fetch from remote. Branch information might be outdated.")
		return
	}
	if out := strings.TrimSpace(res.Stderr); out != "" {
		l.Printf("Fetch warning: %s\n", out)
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		l.Printf("Fetch output: %s\n", out)
	}
}

func (s *Service) allBranches(ctx context.Context, dir string) ([]models.Branch, error) {
	var (
		current, trunk      string
		localOut, remoteOut Result
	)

	// The four reads are independent; all must finish before records are built.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		current = s.currentBranch(gctx, dir)
		return nil
	})
	g.Go(func() error {
		trunk = s.mainBranch(gctx, dir)
		return nil
	})
	g.Go(func() error {
		var err error
		localOut, err = s.runner.Run(gctx, dir, cmdLocalBranches)
		return err
	})
	g.Go(func() error {
		var err error
		remoteOut, err = s.runner.Run(gctx, dir, cmdRemoteBranch)
		return err
	})
	if err := g.Wait(); err != nil {
		log.FromContext(ctx).Printf("Error getting branches: %v\n", err)
		return nil, fmt.Errorf("failed to get branches: %w", err)
	}

	local := parseLocalBranches(localOut.Stdout)
	remote := parseRemoteBranches(remoteOut.Stdout, s.remote)
	log.FromContext(ctx).Printf("Found %d local branches and %d remote branches\n", len(local), len(remote))

	return buildBranches(local, remote, current, trunk), nil
}

// currentBranch returns the checked out branch, or "" when it cannot be
// determined. A detached HEAD reports "HEAD", which matches no branch.
func (s *Service) currentBranch(ctx context.Context, dir string) string {
	res, err := s.runner.Run(ctx, dir, cmdCurrentBranch)
	if err != nil {
		log.FromContext(ctx).Printf("Error getting current branch: %v\n", err)
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

// mainBranch returns the first trunk candidate that resolves to a ref, or
// "" if none does.
func (s *Service) mainBranch(ctx context.Context, dir string) string {
	for _, name := range s.trunks {
		if _, err := s.runner.Run(ctx, dir, verifyCommand(name)); err == nil {
			return name
		}
	}
	return ""
}

// DeleteBranches force-deletes each local branch in names. A failure is
// reported for that branch alone and the rest are still attempted; there
// is no rollback.
func (s *Service) DeleteBranches(ctx context.Context, names []string) []models.DeleteResult {
	dir, ok := s.WorkingDirectory(ctx)
	if !ok {
		return nil
	}

	l := log.FromContext(ctx)
	results := make([]models.DeleteResult, 0, len(names))
	for _, name := range names {
		command := DeleteCommand(name)
		err := ValidateBranchName(name)
		if err == nil {
			_, err = s.runner.Run(ctx, dir, command)
		}
		if err != nil {
			l.Printf("Failed to delete branch %s: %v\n", name, err)
			s.notifyError(fmt.Sprintf("Failed to delete branch: %s", name))
		} else {
			l.Printf("Deleted branch %s\n", name)
			s.notifyInfo(fmt.Sprintf("Deleted branch: %s", name))
		}
		results = append(results, models.DeleteResult{Name: name, Command: command, Err: err})
	}
	return results
}

func (s *Service) notifyInfo(msg string) {
	if s.notify != nil {
		s.notify.Info(msg)
	}
}

func (s *Service) notifyWarning(msg string) {
	if s.notify != nil {
		s.notify.Warning(msg)
	}
}

func (s *Service) notifyError(msg string) {
	if s.notify != nil {
		s.notify.Error(msg)
	}
}
