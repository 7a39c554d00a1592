package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlas-supply/risk-cli/internal/store"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full enrichment and training pipeline",
	Long:  "Loads the raw supplier dataset, enriches it with weather and conflict risk, persists the enriched table, and trains the failure classifier.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Pipeline.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Run %s: %d suppliers enriched, %d labeled failures\n",
			run.ID, run.SupplierRows, run.Failures)
		fmt.Fprintf(os.Stdout, "Enriched table: %s\n", cfg.Data.ProcessedPath)
		fmt.Fprintf(os.Stdout, "Model:          %s\n", cfg.Data.ModelPath)

		if run.Status != store.RunStatusComplete {
			return fmt.Errorf("run finished with status %s", run.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}
