package cmd

import (
	"fmt"

	"github.com/snacksmith/backend/config"
	mcpDelivery "github.com/snacksmith/backend/internal/delivery/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		Long: `Serve the ingredient catalog and nutrition engine as MCP tools over stdio.

Available MCP Tools:
- list_ingredients: List catalog ingredients, optionally by category
- search_ingredients: Find ingredients by free text
- calculate_nutrition: Analyze a "name=grams, ..." recipe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			// stdout carries the protocol
			logger := config.NewStdioLogger(cfg.Log.Level, cfg.Log.Format)

			c, err := newCore(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("Failed to initialize", "error", err)
				return err
			}
			defer c.close()

			server := mcpDelivery.NewServer(c.catalog, c.engine, c.search, cfg.Nutrition.ServingSizeG, logger)
			return server.ServeStdio()
		},
	}
}
