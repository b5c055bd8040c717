package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Johannes-Berggren/BranchPruner/internal/config"
	"github.com/Johannes-Berggren/BranchPruner/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the branch view to a browser",
		Args:  cobra.NoArgs,
		Long: `Serve the branch view as a web page on a local address.

The page works like the terminal UI: select branches, delete them after
confirming, refresh. Stop with Ctrl+C.`,
		Example: `  pruner serve                       # http://127.0.0.1:7420
  pruner serve --addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			if addr == "" {
				addr = e.cfg.Addr
			}
			if err := config.CheckAddr(addr); err != nil {
				return err
			}

			srv := server.New(e.ctx, e.renderer.Ready())
			srv.Bind(e.provider(e.service(srv), srv))

			fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s on http://%s\n", e.dir, addr)
			return srv.Run(e.ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: config addr or 127.0.0.1:7420)")
	return cmd
}
