package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Johannes-Berggren/BranchPruner/internal/ui"
)

var (
	// Global flags
	flagDir     string
	flagLang    string
	flagVerbose bool
	flagLogFile string
)

var rootCmd = &cobra.Command{
	Use:   "pruner",
	Short: "Find and delete stale local git branches",
	Long: `Branch Pruner - list local git branches, see which ones are gone from the
remote, and delete them in bulk. The main branch and the checked out branch
are never deleted.

Without a subcommand it opens the terminal UI. When stdout is not a
terminal it prints the branch list instead.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal(os.Stdout) {
			return runList(cmd.Context(), os.Stdout, false)
		}
		return runTUI(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "C", "", "repository directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&flagLang, "lang", "", "display language, e.g. en or zh-CN (default: config, then $LANG)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log git commands being executed")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "write the terminal UI log to this file")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newPruneCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runTUI(ctx context.Context) error {
	e, err := newEnv(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	bridge := ui.NewBridge()
	svc := e.service(bridge)
	p := e.provider(svc, bridge)

	if err := ui.Run(e.ctx, p, bridge, e.renderer.Text()); err != nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}
