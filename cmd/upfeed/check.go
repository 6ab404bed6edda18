package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/upfeed/internal/notifier"
	"github.com/amishk599/upfeed/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll once, log messages, exit",
	Long:  "One-shot cycle: fetches the feed, logs the composed message for every item, exits. Does not write to the store or send anything.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: nothing will be marked as seen")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nopStore, err := store.Open(ctx, store.NewNop(), logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	fetcher, err := setupFetcher(cfg, logger)
	if err != nil {
		logger.Error("failed to build feed fetcher", "error", err)
		os.Exit(1)
	}

	// Messages go to the log as plain text whatever the configured destination.
	cfg.Notification.Type = "log"
	cfg.SeedOnFirstRun = false
	composer := setupComposer(cfg, setupTranslator(cfg, logger), logger)
	p := buildPoller(cfg, nopStore, fetcher, composer, notifier.NewLogDispatcher(logger), logger)

	stats, err := p.Poll(ctx)
	if err != nil {
		logger.Error("check failed", "error", err)
		os.Exit(1)
	}

	logger.Info("check complete", "fetched", stats.Fetched, "composed", stats.Sent, "filtered", stats.Filtered)
	return nil
}
