package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "List seen postings",
	Long:  "Prints the persisted ids (item links) in the order they were recorded.",
	RunE:  runSeen,
}

func init() {
	rootCmd.AddCommand(seenCmd)
}

func runSeen(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	owner := acquireStoreOwner(cfg, logger, "GET /api/v1/seen on the running daemon")
	defer owner.Release()

	seen, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer seen.Close()

	for _, id := range seen.IDs() {
		fmt.Println(id)
	}
	return nil
}
