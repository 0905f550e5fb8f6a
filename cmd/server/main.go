/*
main.go - Application entry point

PURPOSE:
  Starts the inventory ledger. All behavior lives in the cli package; with
  no subcommand the root prints usage.

EXAMPLES:
  # HTTP API on :8001 with ./inventory.db
  ./server serve

  # In-memory database, different port
  ./server serve --dsn=":memory:" --addr=":3000"

  # MySQL
  INVENTORY_DATABASE_DRIVER=mysql \
  INVENTORY_DATABASE_DSN="user:pw@tcp(localhost:3306)/inventory" ./server serve

  # MCP over stdio
  ./server mcp

SEE ALSO:
  - cli/root.go: commands and flags
  - config/config.go: settings and defaults
*/
package main

import (
	"fmt"
	"os"

	"github.com/warp/inventory-ledger/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
