package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the seen set",
	Long:  "Empties the persisted set of seen postings so every item in the feed is treated as new again.",
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	owner := acquireStoreOwner(cfg, logger, "send /clear to the bot or POST /api/v1/reset")
	defer owner.Release()

	ctx := context.Background()
	seen, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer seen.Close()

	before := seen.Len()
	seen.Reset()
	if err := seen.Persist(ctx); err != nil {
		logger.Error("failed to persist reset", "error", err)
		os.Exit(1)
	}

	logger.Info("seen set cleared", "removed", before)
	return nil
}
