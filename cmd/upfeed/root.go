package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/upfeed/internal/compose"
	"github.com/amishk599/upfeed/internal/config"
	"github.com/amishk599/upfeed/internal/feed"
	"github.com/amishk599/upfeed/internal/filter"
	"github.com/amishk599/upfeed/internal/model"
	"github.com/amishk599/upfeed/internal/normalize"
	"github.com/amishk599/upfeed/internal/notifier"
	"github.com/amishk599/upfeed/internal/poller"
	"github.com/amishk599/upfeed/internal/ratelimit"
	"github.com/amishk599/upfeed/internal/retry"
	"github.com/amishk599/upfeed/internal/secrets"
	"github.com/amishk599/upfeed/internal/store"
	"github.com/amishk599/upfeed/internal/telegram"
	"github.com/amishk599/upfeed/internal/translate"
)

var (
	cfgPath string
	debug   bool
)

// telegramHTTPTimeout exceeds the getUpdates long-poll window.
const telegramHTTPTimeout = 60 * time.Second

var rootCmd = &cobra.Command{
	Use:   "upfeed",
	Short: "Upwork feed watcher",
	Long:  "upfeed watches an Upwork job feed and forwards new postings, translated, to Telegram.",
	// Default to `start` so that `upfeed` with no args runs the daemon.
	RunE:          runStart,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: UPFEED_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > UPFEED_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("UPFEED_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupFetcher(cfg *config.Config, logger *slog.Logger) (model.FeedFetcher, error) {
	httpClient := &http.Client{Timeout: cfg.Feed.Timeout}
	f, err := feed.NewUpworkFetcher(cfg.Feed, httpClient, logger)
	if err != nil {
		return nil, err
	}
	return retry.NewRetryFetcher(f, cfg.Feed.Retries, 5*time.Second, logger), nil
}

func setupTranslator(cfg *config.Config, logger *slog.Logger) model.Translator {
	t := cfg.Translator
	httpClient := &http.Client{Timeout: t.Timeout}
	switch t.Provider {
	case "openai":
		logger.Info("using openai translator", "model", t.Model, "target", t.Target)
		provider := translate.NewOpenAIProvider(t.BaseURL, t.APIKey, t.Model, httpClient)
		return translate.NewLLMTranslator(provider, translate.TranslateTemplate, t.Target, t.Timeout)
	case "none":
		return translate.NewNopTranslator()
	default:
		logger.Info("using google translator", "target", t.Target)
		return translate.NewGoogleTranslator(t.BaseURL, t.Target, t.Timeout, httpClient)
	}
}

func setupComposer(cfg *config.Config, translator model.Translator, logger *slog.Logger) *compose.Composer {
	var markup compose.Markup = compose.TelegramHTML{}
	switch cfg.Notification.Type {
	case "slack":
		markup = compose.SlackMrkdwn{}
	case "log":
		markup = compose.Plain{}
	}
	return compose.New(translator, compose.Options{
		Markup:      markup,
		Labels:      compose.LabelsFor(cfg.Translator.Target),
		TitleSuffix: cfg.Message.TitleSuffix,
	}, logger)
}

func setupNormalizer(cfg *config.Config) *normalize.Normalizer {
	return normalize.New(cfg.Message.Location, cfg.Message.DateLayout)
}

func setupFilter(cfg *config.Config) model.PostingFilter {
	return filter.NewExclusionFilter(cfg.Filters.ExcludeTitleKeywords, cfg.Filters.ExcludeCountries)
}

// setupTelegramClient returns nil when Telegram is not the destination.
func setupTelegramClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*telegram.Client, error) {
	if cfg.Notification.Type != "telegram" {
		return nil, nil
	}
	token, err := secrets.BotToken(cfg.Telegram)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: telegramHTTPTimeout}
	return telegram.NewClient(ctx, cfg.Telegram.APIURL, token, httpClient, logger)
}

func setupDispatcher(cfg *config.Config, tg *telegram.Client, logger *slog.Logger) model.Dispatcher {
	switch cfg.Notification.Type {
	case "telegram":
		logger.Info("using telegram dispatcher", "chat", cfg.Telegram.ChatID)
		d := telegram.NewDispatcher(tg, cfg.Telegram.ChatID)
		return ratelimit.NewRateLimitedDispatcher(d, cfg.Telegram.RatePerSecond)
	case "slack":
		logger.Info("using slack dispatcher")
		return notifier.NewSlackDispatcher(cfg.Notification.WebhookURL, &http.Client{Timeout: 30 * time.Second}, logger)
	default:
		return notifier.NewLogDispatcher(logger)
	}
}

// acquireStoreOwner exits when another upfeed process already owns the store.
// hint tells the user how to do the same thing through the running daemon.
func acquireStoreOwner(cfg *config.Config, logger *slog.Logger, hint string) *store.Owner {
	owner, err := store.AcquireOwner(store.OwnerLockPath(cfg.Store))
	if errors.Is(err, store.ErrStoreInUse) {
		logger.Error("store is owned by a running upfeed daemon", "hint", hint)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to lock store", "error", err)
		os.Exit(1)
	}
	return owner
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.SeenSet, error) {
	backend, err := store.NewBackend(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Type, err)
	}
	seen, err := store.Open(ctx, backend, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return seen, nil
}

func buildPoller(cfg *config.Config, seen model.SeenStore, fetcher model.FeedFetcher, composer poller.Composer, dispatcher model.Dispatcher, logger *slog.Logger) *poller.FeedPoller {
	return poller.New(
		fetcher,
		seen,
		setupNormalizer(cfg),
		setupFilter(cfg),
		composer,
		dispatcher,
		poller.Options{Workers: cfg.Workers, SeedOnFirstRun: cfg.SeedOnFirstRun},
		logger,
	)
}
