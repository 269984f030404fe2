package main

import (
	"fmt"
	"strings"

	"newsbot/types"

	"github.com/spf13/cobra"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Run one near-duplicate removal pass over the store",
	Long: `Compare every stored article with every other one and delete the later
member of each pair whose similarity reaches the threshold, then renumber the
survivors 0..N-1.

Examples:
  newsbot dedup
  newsbot dedup --threshold 0.95
  newsbot dedup --strategy semantic`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runtimeOptions{}
		opts.strategy, _ = cmd.Flags().GetString("strategy")
		var threshold *float64
		if cmd.Flags().Changed("threshold") {
			t, _ := cmd.Flags().GetFloat64("threshold")
			if t < 0 || t > 1 {
				return fmt.Errorf("threshold must be between 0 and 1, got %v", t)
			}
			threshold = &t
		}

		ctx := cmd.Context()
		rt, err := newRuntime(ctx, cfg, opts)
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := rt.runner.RunPass(ctx, threshold)
		if err != nil {
			return err
		}
		printPassResult(result)
		return nil
	},
}

func printPassResult(r *types.PassResult) {
	fmt.Printf("Run %s (%s, threshold %.2f)\n", r.RunID, r.Strategy, r.Threshold)
	fmt.Printf("  articles:  %d\n", r.Total)
	fmt.Printf("  deleted:   %d\n", len(r.Deleted))
	fmt.Printf("  survivors: %d\n", r.Survivors)
	if len(r.Deleted) > 0 {
		fmt.Printf("  keys:      %s\n", strings.Join(r.Deleted, ", "))
	}
	fmt.Printf("  took:      %s\n", r.Duration)
}

func init() {
	dedupCmd.Flags().String("strategy", "", "Similarity strategy: lexical or semantic (default from DEDUP_STRATEGY)")
	dedupCmd.Flags().Float64("threshold", 0, "Similarity threshold in [0,1] (default from DEDUP_THRESHOLD)")
	rootCmd.AddCommand(dedupCmd)
}
