package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"newsbot/config"
	"newsbot/logging"

	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "newsbot",
	Short: "Finance news ingestion and near-duplicate removal",
	Long: `newsbot collects Taiwanese finance news from RSS feeds and the PTT Stock board,
keeps the articles that mention a tracked keyword, and periodically removes
near-duplicate articles from the store so downstream annotation sees each story once.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		logging.Setup(cfg.LogLevel, cfg.LogPretty)
		return nil
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
