package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/upfeed/internal/preview"
	"github.com/amishk599/upfeed/internal/translate"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Browse the current feed interactively (TUI)",
	Long:  "Fetches the feed once and shows every item with its seen status, extracted fields and composed message. Nothing is sent or persisted.",
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Log output corrupts the alt-screen, so everything below logs nowhere.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fetcher, err := setupFetcher(cfg, silentLogger)
	if err != nil {
		logger.Error("failed to build feed fetcher", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	seen, err := openStore(ctx, cfg, silentLogger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer seen.Close()

	items, err := preview.RunLoader(fetcher.FetchItems)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil
	}

	composer := setupComposer(cfg, translate.NewNopTranslator(), silentLogger)
	entries := preview.BuildEntries(ctx, items, seen, setupNormalizer(cfg), setupFilter(cfg), composer)

	if err := preview.Run(entries); err != nil {
		fmt.Fprintf(os.Stderr, "Error running preview: %v\n", err)
	}
	return nil
}
