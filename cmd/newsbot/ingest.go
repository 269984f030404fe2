package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch new articles from the configured feeds and the PTT board",
	Long: `Fetch new articles into the store without running a deduplication pass.

High-priority feeds are read first, then low-priority feeds, then the PTT Stock
board fills whatever remains of the budget. When Kafka is configured an event is
published on articles.ingested so a running "newsbot serve" deduplicates them.

Examples:
  newsbot ingest
  newsbot ingest --budget 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if budget, _ := cmd.Flags().GetInt("budget"); budget > 0 {
			cfg.Budget = budget
		}

		ctx := cmd.Context()
		rt, err := newRuntime(ctx, cfg, runtimeOptions{ingest: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.runner.Ingest(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Inserted %d, skipped %d, failed %d\n", res.Inserted, res.Skipped, res.Failed)
		for source, n := range res.BySource {
			fmt.Printf("  %-12s %d\n", source, n)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().Int("budget", 0, "Maximum number of articles to insert (default from INGEST_BUDGET)")
	rootCmd.AddCommand(ingestCmd)
}
