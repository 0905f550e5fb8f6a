/*
Package cli is the inventory-ledger command line.

COMMANDS:
  serve     HTTP API (POST /action, REST, /schema, /health)
  mcp       MCP server on stdio
  action    Run one action and print the envelope
  migrate   Create the schema and exit
  version   Print build information

CONFIGURATION:
  --config names an optional YAML file. Every setting can also come from
  INVENTORY_* environment variables; flags win over both.

SEE ALSO:
  - config/config.go: keys and defaults
  - app.go: store and logger construction shared by the commands
*/
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warp/inventory-ledger/config"
)

var (
	version = "dev"
	commit  = "none"
)

// rootOptions is shared by every subcommand of one root.
type rootOptions struct {
	configFile string
	v          *viper.Viper
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}

	cmd := &cobra.Command{
		Use:   "inventory-ledger",
		Short: "Inventory ledger service",
		Long:  "Products, categories and an append-only ledger of stock movements, served over HTTP or MCP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.v, opts.configFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file")
	flags.String("db-driver", "", "database driver: sqlite or mysql")
	flags.String("dsn", "", "database DSN (sqlite path or mysql DSN)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	bindFlag(opts.v, "database.driver", flags.Lookup("db-driver"))
	bindFlag(opts.v, "database.dsn", flags.Lookup("dsn"))
	bindFlag(opts.v, "log.level", flags.Lookup("log-level"))

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	cmd.AddCommand(newActionCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("inventory-ledger " + version + " (" + commit + ")\n"))
			return err
		},
	}
}
