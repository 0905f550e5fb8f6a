package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/warp/inventory-ledger/dispatch"
	mcpadapter "github.com/warp/inventory-ledger/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server (stdio)",
		Long:  "Serve the inventory_action tool and the inventory://schema resource over stdio. Logs go to stderr.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			d := dispatch.New(rt.store, dispatch.WithLogger(rt.logger))
			return mcpadapter.Serve(mcpadapter.NewServer(d, version))
		},
	}
}
