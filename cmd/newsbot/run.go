package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full cycle: ingest, deduplicate, publish and archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx, cfg, runtimeOptions{ingest: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		report, err := rt.runner.RunOnce(ctx)
		if err != nil {
			return err
		}
		if report.Ingest != nil {
			fmt.Printf("Ingested %d new article(s)\n", report.Ingest.Inserted)
		}
		printPassResult(report.Pass)
		if report.ArchiveKey != "" {
			fmt.Printf("  archived:  %s\n", report.ArchiveKey)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
