// Package cli implements the monetized-mcp command.
package cli

import (
	"github.com/spf13/cobra"
)

// ServerName is the MCP implementation name reported to clients.
const ServerName = "monetized-mcp"

// NewRootCommand returns the command tree. Running it without a subcommand serves.
func NewRootCommand(version string) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "monetized-mcp",
		Short: "MonetizedMCP catalog server",
		Long: `monetized-mcp sells catalog items over the Model Context Protocol.

Buyers list prices, pick a payment method and pay with a signed x402
payment that is verified and settled through a facilitator.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, envFile, version)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")

	root.AddCommand(newServeCommand(&envFile, version))
	root.AddCommand(newPricesCommand())
	root.AddCommand(newPurchaseCommand())
	return root
}

// Execute runs the command line with os.Args.
func Execute(version string) error {
	return NewRootCommand(version).Execute()
}
