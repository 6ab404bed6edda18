package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/upfeed/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Composes a sample posting and sends it through the configured dispatcher.",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tg, err := setupTelegramClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up telegram", "error", err)
		os.Exit(1)
	}

	composer := setupComposer(cfg, setupTranslator(cfg, logger), logger)
	d := setupDispatcher(cfg, tg, logger)

	if err := notifier.SendTestMessage(ctx, setupNormalizer(cfg), composer, d, time.Now()); err != nil {
		logger.Error("test notification failed", "error", err)
		os.Exit(1)
	}
	logger.Info("test notification sent successfully")
	return nil
}
