package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/inventory-ledger/dispatch"
)

var errActionFailed = errors.New("action failed")

func newActionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "action <entity.operation> [params-json]",
		Short: "Run one action and print the envelope",
		Example: `  inventory-ledger action product.list
  inventory-ledger action transaction.create '{"product_id":1,"quantity":5,"transaction_type":"receiving"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if len(args) == 2 {
				raw = json.RawMessage(args[1])
			}

			rt, err := newRuntime(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			resp := dispatch.New(rt.store, dispatch.WithLogger(rt.logger)).Invoke(cmd.Context(), args[0], raw)
			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !resp.Success {
				return errActionFailed
			}
			return nil
		},
	}
}
