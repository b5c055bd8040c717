package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Johannes-Berggren/BranchPruner/internal/models"
	"github.com/Johannes-Berggren/BranchPruner/internal/provider"
	"github.com/Johannes-Berggren/BranchPruner/internal/ui/prompt"
)

var errNoTerminal = errors.New("stdin is not a terminal; pass --yes to delete without asking")

func newPruneCmd() *cobra.Command {
	var yes, dryRun bool

	cmd := &cobra.Command{
		Use:   "prune [branch...]",
		Short: "Delete local branches",
		Long: `Force-delete local branches with git branch -D.

With branch names, deletes exactly those. Without, deletes every local
branch that no longer exists on the remote. The main branch and the
checked out branch are refused. The commands are shown and confirmed
before anything is deleted.`,
		Example: `  pruner prune                   # Delete branches gone from the remote
  pruner prune feature-x fix-1   # Delete the named branches
  pruner prune -n                # Show what would be deleted
  pruner prune --yes             # Do not ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args, yes, dryRun)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would be deleted")
	return cmd
}

func runPrune(ctx context.Context, in io.Reader, out io.Writer, names []string, yes, dryRun bool) error {
	e, err := newEnv(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	svc := e.service(consoleNotifier{os.Stderr})
	branches, err := e.loadBranches(svc)
	if err != nil {
		return err
	}

	targets, err := selectTargets(branches, names)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(out, "Nothing to prune.")
		return nil
	}

	c := provider.BuildConfirmation(e.messages, targets, e.cfg.ConfirmPreview)
	fmt.Fprintln(out, headingStyle.Render(c.Message))
	fmt.Fprintln(out)
	fmt.Fprintln(out, subtitleStyle.Render(c.Detail))
	if dryRun {
		return nil
	}

	if !yes {
		f, ok := in.(*os.File)
		if !ok || !isTerminal(f) {
			return errNoTerminal
		}
		answer, err := prompt.ConfirmDelete(in, out, c, len(targets))
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		if answer != prompt.Yes {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	failed := 0
	for _, r := range svc.DeleteBranches(e.ctx, targets) {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d branches could not be deleted", failed, len(targets))
	}
	return nil
}

// selectTargets resolves the branches to delete. Named branches must
// exist and be deletable; with no names, every deletable branch missing
// from the remote is chosen.
func selectTargets(branches []models.Branch, names []string) ([]string, error) {
	if len(names) == 0 {
		var out []string
		for _, b := range models.DeletableBranches(branches) {
			if !b.ExistsRemote {
				out = append(out, b.Name)
			}
		}
		return out, nil
	}

	byName := make(map[string]models.Branch, len(branches))
	for _, b := range branches {
		byName[b.Name] = b
	}

	seen := make(map[string]bool, len(names))
	var out []string
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		b, ok := byName[name]
		switch {
		case !ok:
			return nil, fmt.Errorf("branch %q not found", name)
		case b.IsMain:
			return nil, fmt.Errorf("refusing to delete main branch %q", name)
		case b.IsCurrent:
			return nil, fmt.Errorf("refusing to delete current branch %q", name)
		}
		out = append(out, name)
	}
	return out, nil
}
