package cmd

import (
	"github.com/spf13/cobra"
)

const version = "1.0.0"

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snacksmith",
		Short: "SnackSmith snack builder backend",
		Long: `SnackSmith composes snacks from a base and weighted ingredients and
reports their combined nutrition, health score and allergens.

Modes:

1. serve: HTTP API for the snack builder UI
2. mcp: MCP tools over stdio (list, search and calculate)
3. analyze: one-shot nutrition analysis printed as JSON

Configuration is read from config.yaml, .env and SNACKSMITH_* variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newMCPCmd(), newAnalyzeCmd())
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// Run is the main entry point for the CLI application
func Run() error {
	return Execute()
}
