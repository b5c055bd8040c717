package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Johannes-Berggren/BranchPruner/internal/models"
	"github.com/Johannes-Berggren/BranchPruner/internal/webview"
)

var (
	nameStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("white"))
	protectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	inSyncStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("green"))
	staleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("red"))
	markerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("green"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headingStyle  = lipgloss.NewStyle().Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func newListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List local branches",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		Long: `List local branches after fetching with --prune.

Each branch shows whether it still exists on the remote. Main and the
checked out branch are marked and can never be deleted.`,
		Example: `  pruner list                # Table for the current repository
  pruner list -C ~/src/app   # Another repository
  pruner list --json         # Output as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd.OutOrStdout(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func runList(ctx context.Context, out io.Writer, asJSON bool) error {
	e, err := newEnv(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	branches, err := e.loadBranches(e.service(consoleNotifier{os.Stderr}))
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(branches)
	}
	_, err = io.WriteString(out, formatBranches(branches, e.renderer.Text()))
	return err
}

// formatBranches renders one aligned line per branch.
func formatBranches(branches []models.Branch, text webview.Text) string {
	if len(branches) == 0 {
		return text.NoBranches + "\n"
	}

	width := 0
	for _, b := range branches {
		width = max(width, lipgloss.Width(b.Name))
	}

	var sb strings.Builder
	for _, b := range branches {
		name := nameStyle
		if !b.Deletable() {
			name = protectStyle
		}
		line := name.Width(width + 2).Render(b.Name)

		if b.ExistsRemote {
			line += inSyncStyle.Render(text.RemoteOK)
		} else {
			line += staleStyle.Render(text.RemoteMissing)
		}
		if b.IsCurrent {
			line += " " + markerStyle.Render(text.Current)
		}
		if b.IsMain {
			line += " " + markerStyle.Render(text.Main)
		}
		sb.WriteString(line + "\n")
	}

	deletable := len(models.DeletableBranches(branches))
	fmt.Fprintf(&sb, "\n%d branches, %d deletable\n", len(branches), deletable)
	return sb.String()
}
