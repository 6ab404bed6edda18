package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/upfeed/internal/api"
	"github.com/amishk599/upfeed/internal/scheduler"
	"github.com/amishk599/upfeed/internal/telegram"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the polling daemon",
	Long:  "Start the scheduler, the Telegram command listener and the optional admin API; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"interval", cfg.PollingInterval.String(),
		"workers", cfg.Workers,
		"notification", cfg.Notification.Type,
		"translator", cfg.Translator.Provider,
		"target", cfg.Translator.Target,
		"store", cfg.Store.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	owner := acquireStoreOwner(cfg, logger, "stop the other daemon first")
	defer owner.Release()

	seen, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer seen.Close()
	logger.Info("store opened", "type", cfg.Store.Type, "seen", seen.Len())

	fetcher, err := setupFetcher(cfg, logger)
	if err != nil {
		logger.Error("failed to build feed fetcher", "error", err)
		os.Exit(1)
	}

	tg, err := setupTelegramClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up telegram", "error", err)
		os.Exit(1)
	}

	translator := setupTranslator(cfg, logger)
	composer := setupComposer(cfg, translator, logger)
	dispatcher := setupDispatcher(cfg, tg, logger)
	p := buildPoller(cfg, seen, fetcher, composer, dispatcher, logger)

	g, ctx := errgroup.WithContext(ctx)

	sched := scheduler.NewScheduler(p, cfg.PollingInterval, logger)
	g.Go(func() error { return sched.Run(ctx) })

	if tg != nil && cfg.Telegram.Commands {
		listener := telegram.NewCommandListener(tg, cfg.Telegram.ChatID, p, logger)
		if err := listener.Register(ctx); err != nil {
			logger.Warn("failed to register bot commands", "error", err)
		}
		g.Go(func() error { return listener.Run(ctx) })
	}

	if cfg.HTTP.Listen != "" {
		gin.SetMode(gin.ReleaseMode)
		srv := api.NewServer(cfg.HTTP.Listen, cfg.HTTP.Token, api.NewHandler(p, seen), logger)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("daemon error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
