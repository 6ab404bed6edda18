package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	pollTimeout = 30 * time.Second
	errorDelay  = 5 * time.Second

	clearedReply = "Seen postings cleared."
)

// Commands is the menu registered with setMyCommands.
var Commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Hello message"},
	{Command: "clear", Description: "Clear the database"},
}

// Resetter clears the dedup set and persists the empty set.
type Resetter interface {
	Reset(ctx context.Context) error
}

// CommandListener long-polls the Bot API and answers /start and /clear.
type CommandListener struct {
	dispatcher *Dispatcher
	client     *Client
	chatID     string
	resetter   Resetter
	logger     *slog.Logger
	offset     int
}

// NewCommandListener creates a listener. /clear (and its alias /reset) is
// only honoured when sent from chatID.
func NewCommandListener(client *Client, chatID string, resetter Resetter, logger *slog.Logger) *CommandListener {
	return &CommandListener{
		dispatcher: NewDispatcher(client, chatID),
		client:     client,
		chatID:     chatID,
		resetter:   resetter,
		logger:     logger,
	}
}

// Register installs the command menu. Failures are not fatal to the bot.
func (l *CommandListener) Register(ctx context.Context) error {
	return l.client.SetMyCommands(ctx, Commands)
}

// Run polls for updates until ctx is cancelled. Returns nil on cancellation.
func (l *CommandListener) Run(ctx context.Context) error {
	l.logger.Info("command listener started")
	for {
		updates, err := l.client.GetUpdates(ctx, l.offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("command listener stopped")
				return nil
			}
			l.logger.Error("get updates failed", "error", err)
			select {
			case <-ctx.Done():
				l.logger.Info("command listener stopped")
				return nil
			case <-time.After(errorDelay):
			}
			continue
		}

		for _, u := range updates {
			l.offset = u.UpdateID + 1
			if u.Message != nil {
				l.handle(ctx, u.Message)
			}
		}
	}
}

func (l *CommandListener) handle(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chat := strconv.FormatInt(msg.Chat.ID, 10)

	switch parseCommand(msg.Text) {
	case "start":
		if err := l.dispatcher.Greet(ctx, chat); err != nil {
			l.logger.Error("greeting failed", "chat", chat, "error", err)
		}
	case "clear", "reset":
		if chat != l.chatID {
			l.logger.Warn("ignoring clear from foreign chat", "chat", chat)
			return
		}
		if err := l.resetter.Reset(ctx); err != nil {
			l.logger.Error("reset failed", "error", err)
			return
		}
		l.logger.Info("seen postings cleared via command")
		if err := l.client.SendMessage(ctx, chat, clearedReply); err != nil {
			l.logger.Error("reset acknowledgement failed", "error", err)
		}
	}
}

// parseCommand returns the command name of text ("/clear@upfeed_bot now" →
// "clear"), or "" when text is not a command.
func parseCommand(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	name, _, _ := strings.Cut(fields[0][1:], "@")
	return strings.ToLower(name)
}
