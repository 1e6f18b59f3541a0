package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/snacksmith/backend/config"
	"github.com/snacksmith/backend/internal/domain"
	"github.com/snacksmith/backend/internal/usecase"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	ingredients  []string
	servingSizeG float64
	explain      bool
}

type analyzeOutput struct {
	Ingredients []domain.IngredientEntry  `json:"ingredients"`
	Analysis    *domain.NutritionAnalysis `json:"analysis"`
	Explanation string                    `json:"explanation,omitempty"`
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print the nutrition analysis of a recipe as JSON",
		Example: `  snacksmith analyze -i almonds=30 -i dates=20
  snacksmith analyze -i "rolled oats=40,honey=10" --serving 25 --explain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := config.NewStdioLogger(cfg.Log.Level, cfg.Log.Format)

			c, err := newCore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer c.close()

			if opts.servingSizeG == 0 {
				opts.servingSizeG = cfg.Nutrition.ServingSizeG
			}
			return runAnalyze(cmd, c, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringArrayVarP(&opts.ingredients, "ingredient", "i", nil, "Ingredient as name=grams; repeatable or comma-separated")
	cmd.Flags().Float64Var(&opts.servingSizeG, "serving", 0, "Serving size in grams (default: whole snack)")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Include a prose explanation of the health score")
	_ = cmd.MarkFlagRequired("ingredient")

	return cmd
}

func runAnalyze(cmd *cobra.Command, c *core, opts *analyzeOptions, out io.Writer) error {
	if err := usecase.ValidateServingSize(opts.servingSizeG); err != nil {
		return err
	}

	var parsed []domain.IngredientEntry
	for _, raw := range opts.ingredients {
		entries, err := usecase.ParseEntrySpecs(raw)
		if err != nil {
			return err
		}
		parsed = append(parsed, entries...)
	}
	if len(parsed) == 0 {
		return fmt.Errorf("%w: at least one ingredient is required", domain.ErrInvalidRequest)
	}

	entries, err := usecase.CanonicalizeEntries(c.catalog, parsed)
	if err != nil {
		var unknown *domain.UnknownIngredientError
		if errors.As(err, &unknown) {
			if hint, ok := c.search.DidYouMean(unknown.Name); ok {
				return fmt.Errorf("%w (did you mean %q?)", err, hint)
			}
		}
		return err
	}

	analysis, err := c.engine.Calculate(cmd.Context(), entries, opts.servingSizeG)
	if err != nil {
		return err
	}

	result := analyzeOutput{Ingredients: entries, Analysis: analysis}
	if opts.explain {
		result.Explanation = usecase.ExplainScore(analysis)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
