package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the upfeed bot. It is assembled once
// at startup and passed explicitly to every component.
type Config struct {
	PollingInterval time.Duration
	Workers         int  // concurrent per-item tasks within a cycle
	SeedOnFirstRun  bool // mark the first window seen without notifying
	Feed            FeedConfig
	Notification    NotificationConfig
	Telegram        TelegramConfig
	Translator      TranslatorConfig
	Message         MessageConfig
	Store           StoreConfig
	Filters         FilterConfig
	HTTP            HTTPConfig
}

// FeedConfig holds the feed source URL and its fixed query parameters.
type FeedConfig struct {
	BaseURL       string
	Query         string
	SecurityToken string
	UserUID       string
	OrgUID        string
	Params        map[string]string // extra or overriding query parameters
	Timeout       time.Duration
	Retries       int
}

// NotificationConfig controls which dispatcher is used.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "telegram", "slack" or "log"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// TelegramConfig holds Bot API credentials and the destination chat.
type TelegramConfig struct {
	Token               string
	TokenKeyringAccount string // read the token from the OS keychain when Token is empty
	ChatID              string
	APIURL              string
	Commands            bool    // listen for inbound /start and /clear
	RatePerSecond       float64 // outbound message rate
}

// TranslatorConfig selects the translation backend.
type TranslatorConfig struct {
	Provider string // "google", "openai" or "none"
	Target   string // BCP-47 target language
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// MessageConfig controls how the final message is rendered.
type MessageConfig struct {
	TitleSuffix string
	Location    *time.Location
	DateLayout  string
}

// StoreConfig selects and configures the durable dedup backend.
type StoreConfig struct {
	Type          string // "json", "sqlite" or "redis"
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// FilterConfig holds optional exclusion lists.
type FilterConfig struct {
	ExcludeTitleKeywords []string `yaml:"exclude_title_keywords"`
	ExcludeCountries     []string `yaml:"exclude_countries"`
}

// HTTPConfig controls the optional admin API.
type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables the server; a bare ":port" binds to loopback
	Token  string `yaml:"token"`  // bearer token for /api/v1, required off loopback
}

const (
	defaultTelegramAPIURL  = "https://api.telegram.org"
	defaultGoogleBaseURL   = "https://translate.googleapis.com"
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultTitleSuffix     = " - Upwork"
	defaultDateLayout      = "02.01.2006 15:04 MST"
	defaultRedisKey        = "upfeed:seen"
	defaultJSONStorePath   = "db.json"
	defaultSQLiteStorePath = "upfeed.db"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	PollingInterval string             `yaml:"polling_interval"`
	Workers         int                `yaml:"workers"`
	SeedOnFirstRun  bool               `yaml:"seed_on_first_run"`
	Feed            rawFeedConfig      `yaml:"feed"`
	Notification    NotificationConfig `yaml:"notification"`
	Telegram        rawTelegramConfig  `yaml:"telegram"`
	Translator      rawTranslator      `yaml:"translator"`
	Message         rawMessageConfig   `yaml:"message"`
	Store           rawStoreConfig     `yaml:"store"`
	Filters         FilterConfig       `yaml:"filters"`
	HTTP            HTTPConfig         `yaml:"http"`
}

type rawFeedConfig struct {
	BaseURL       string            `yaml:"base_url"`
	Query         string            `yaml:"query"`
	SecurityToken string            `yaml:"security_token"`
	UserUID       string            `yaml:"user_uid"`
	OrgUID        string            `yaml:"org_uid"`
	Params        map[string]string `yaml:"params"`
	Timeout       string            `yaml:"timeout"`
	Retries       *int              `yaml:"retries"`
}

type rawTelegramConfig struct {
	Token               string  `yaml:"token"`
	TokenKeyringAccount string  `yaml:"token_keyring_account"`
	ChatID              string  `yaml:"chat_id"`
	APIURL              string  `yaml:"api_url"`
	Commands            *bool   `yaml:"commands"`
	RatePerSecond       float64 `yaml:"rate_per_second"`
}

type rawTranslator struct {
	Provider string `yaml:"provider"`
	Target   string `yaml:"target"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

type rawMessageConfig struct {
	TitleSuffix *string `yaml:"title_suffix"`
	Timezone    string  `yaml:"timezone"`
	DateLayout  string  `yaml:"date_layout"`
}

type rawStoreConfig struct {
	Type          string `yaml:"type"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, parses it as YAML, applies
// defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	interval := 30 * time.Second // default
	var err error
	if raw.PollingInterval != "" {
		interval, err = time.ParseDuration(raw.PollingInterval)
		if err != nil {
			return nil, fmt.Errorf("parse polling_interval %q: %w", raw.PollingInterval, err)
		}
	}

	feedTimeout := 30 * time.Second
	if raw.Feed.Timeout != "" {
		feedTimeout, err = time.ParseDuration(raw.Feed.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse feed.timeout %q: %w", raw.Feed.Timeout, err)
		}
	}
	retries := 2
	if raw.Feed.Retries != nil {
		retries = *raw.Feed.Retries
	}

	translatorTimeout := 30 * time.Second
	if raw.Translator.Timeout != "" {
		translatorTimeout, err = time.ParseDuration(raw.Translator.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse translator.timeout %q: %w", raw.Translator.Timeout, err)
		}
	}

	loc := time.UTC
	if raw.Message.Timezone != "" {
		loc, err = time.LoadLocation(raw.Message.Timezone)
		if err != nil {
			return nil, fmt.Errorf("parse message.timezone %q: %w", raw.Message.Timezone, err)
		}
	}

	titleSuffix := defaultTitleSuffix
	if raw.Message.TitleSuffix != nil {
		titleSuffix = *raw.Message.TitleSuffix
	}

	workers := raw.Workers
	if workers == 0 {
		workers = 4
	}

	commands := true
	if raw.Telegram.Commands != nil {
		commands = *raw.Telegram.Commands
	}

	notifType := raw.Notification.Type
	if notifType == "" {
		notifType = "telegram"
	}

	provider := raw.Translator.Provider
	if provider == "" {
		provider = "google"
	}
	translatorBaseURL := raw.Translator.BaseURL
	if translatorBaseURL == "" {
		switch provider {
		case "google":
			translatorBaseURL = defaultGoogleBaseURL
		case "openai":
			translatorBaseURL = defaultOpenAIBaseURL
		}
	}

	storeType := raw.Store.Type
	if storeType == "" {
		storeType = "json"
	}
	storePath := raw.Store.Path
	if storePath == "" {
		switch storeType {
		case "json":
			storePath = defaultJSONStorePath
		case "sqlite":
			storePath = defaultSQLiteStorePath
		}
	}

	cfg := &Config{
		PollingInterval: interval,
		Workers:         workers,
		SeedOnFirstRun:  raw.SeedOnFirstRun,
		Feed: FeedConfig{
			BaseURL:       raw.Feed.BaseURL,
			Query:         raw.Feed.Query,
			SecurityToken: raw.Feed.SecurityToken,
			UserUID:       raw.Feed.UserUID,
			OrgUID:        raw.Feed.OrgUID,
			Params:        raw.Feed.Params,
			Timeout:       feedTimeout,
			Retries:       retries,
		},
		Notification: NotificationConfig{
			Type:       notifType,
			WebhookURL: raw.Notification.WebhookURL,
		},
		Telegram: TelegramConfig{
			Token:               raw.Telegram.Token,
			TokenKeyringAccount: raw.Telegram.TokenKeyringAccount,
			ChatID:              raw.Telegram.ChatID,
			APIURL:              orDefault(raw.Telegram.APIURL, defaultTelegramAPIURL),
			Commands:            commands,
			RatePerSecond:       raw.Telegram.RatePerSecond,
		},
		Translator: TranslatorConfig{
			Provider: provider,
			Target:   orDefault(raw.Translator.Target, "ru"),
			BaseURL:  translatorBaseURL,
			APIKey:   raw.Translator.APIKey,
			Model:    raw.Translator.Model,
			Timeout:  translatorTimeout,
		},
		Message: MessageConfig{
			TitleSuffix: titleSuffix,
			Location:    loc,
			DateLayout:  orDefault(raw.Message.DateLayout, defaultDateLayout),
		},
		Store: StoreConfig{
			Type:          storeType,
			Path:          storePath,
			RedisAddr:     raw.Store.RedisAddr,
			RedisPassword: raw.Store.RedisPassword,
			RedisDB:       raw.Store.RedisDB,
			RedisKey:      orDefault(raw.Store.RedisKey, defaultRedisKey),
		},
		Filters: raw.Filters,
		HTTP:    raw.HTTP,
	}
	if cfg.Telegram.RatePerSecond == 0 {
		cfg.Telegram.RatePerSecond = 1
	}
	if strings.HasPrefix(cfg.HTTP.Listen, ":") {
		cfg.HTTP.Listen = "127.0.0.1" + cfg.HTTP.Listen
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	if cfg.PollingInterval <= 0 {
		return fmt.Errorf("polling_interval must be positive, got %v", cfg.PollingInterval)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if !strings.HasPrefix(cfg.Feed.BaseURL, "http://") && !strings.HasPrefix(cfg.Feed.BaseURL, "https://") {
		return fmt.Errorf("feed.base_url must be an http(s) URL")
	}
	if cfg.Feed.Retries < 0 {
		return fmt.Errorf("feed.retries must not be negative, got %d", cfg.Feed.Retries)
	}

	switch cfg.Notification.Type {
	case "telegram":
		if cfg.Telegram.Token == "" && cfg.Telegram.TokenKeyringAccount == "" {
			return fmt.Errorf("telegram.token or telegram.token_keyring_account is required when notification.type is \"telegram\"")
		}
		if cfg.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when notification.type is \"telegram\"")
		}
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	case "log":
	default:
		return fmt.Errorf("notification.type must be one of telegram, slack, log; got %q", cfg.Notification.Type)
	}
	if cfg.Telegram.RatePerSecond < 0 {
		return fmt.Errorf("telegram.rate_per_second must be positive, got %v", cfg.Telegram.RatePerSecond)
	}

	if _, err := language.Parse(cfg.Translator.Target); err != nil {
		return fmt.Errorf("translator.target %q is not a valid language tag: %w", cfg.Translator.Target, err)
	}
	switch cfg.Translator.Provider {
	case "google", "none":
	case "openai":
		if cfg.Translator.APIKey == "" {
			return fmt.Errorf("translator.api_key is required when translator.provider is \"openai\"")
		}
		if cfg.Translator.Model == "" {
			return fmt.Errorf("translator.model is required when translator.provider is \"openai\"")
		}
	default:
		return fmt.Errorf("translator.provider must be one of google, openai, none; got %q", cfg.Translator.Provider)
	}

	switch cfg.Store.Type {
	case "json", "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for store.type %q", cfg.Store.Type)
		}
	case "redis":
		if cfg.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required when store.type is \"redis\"")
		}
	default:
		return fmt.Errorf("store.type must be one of json, sqlite, redis; got %q", cfg.Store.Type)
	}

	if cfg.HTTP.Listen != "" {
		host, _, err := net.SplitHostPort(cfg.HTTP.Listen)
		if err != nil {
			return fmt.Errorf("http.listen %q: %w", cfg.HTTP.Listen, err)
		}
		if cfg.HTTP.Token == "" && !isLoopback(host) {
			return fmt.Errorf("http.token is required when http.listen is not a loopback address")
		}
	}

	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
