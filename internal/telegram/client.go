package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/amishk599/upfeed/internal/model"
)

// Client wraps the Bot API methods upfeed needs: sendMessage, setMyCommands
// and getUpdates.
type Client struct {
	api        *tgbotapi.BotAPI
	httpClient *http.Client
	logger     *slog.Logger
}

// contextDoer binds every request made by the bot library to ctx, which the
// library itself does not accept.
type contextDoer struct {
	ctx    context.Context
	client *http.Client
}

func (d contextDoer) Do(req *http.Request) (*http.Response, error) {
	return d.client.Do(req.WithContext(d.ctx))
}

// NewClient authorizes the bot identified by token with a getMe call.
func NewClient(ctx context.Context, baseURL, token string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/bot%s/%s"
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, contextDoer{ctx: ctx, client: httpClient})
	if err != nil {
		return nil, convertError("getMe", err)
	}
	logger.Debug("telegram bot authorized", "username", api.Self.UserName)
	return &Client{api: api, httpClient: httpClient, logger: logger}, nil
}

// bot returns a shallow copy of the library client whose requests are
// cancelled with ctx.
func (c *Client) bot(ctx context.Context) *tgbotapi.BotAPI {
	b := *c.api
	b.Client = contextDoer{ctx: ctx, client: c.httpClient}
	return &b
}

// SendMessage sends HTML-formatted text to chatID with link previews
// disabled. A 429 answer is retried once after the server-provided delay.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	msg := newMessage(chatID, text)

	err := c.send(ctx, msg)
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
		return err
	}

	delay := max(httpErr.RetryAfter, time.Second)
	c.logger.Warn("telegram rate limited, retrying", "retry_after", delay)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}

	if err := c.send(ctx, msg); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	if _, err := c.bot(ctx).Send(msg); err != nil {
		return convertError("sendMessage", err)
	}
	return nil
}

// newMessage addresses numeric chat ids directly and anything else
// ("@channel") by username.
func newMessage(chatID, text string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

// SetMyCommands registers the command menu shown by Telegram clients.
func (c *Client) SetMyCommands(ctx context.Context, commands []tgbotapi.BotCommand) error {
	if _, err := c.bot(ctx).Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return convertError("setMyCommands", err)
	}
	return nil
}

// GetUpdates long-polls for new messages starting at offset. The call blocks
// for up to timeout on the server side.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]tgbotapi.Update, error) {
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = int(timeout / time.Second)
	cfg.AllowedUpdates = []string{"message"}

	updates, err := c.bot(ctx).GetUpdates(cfg)
	if err != nil {
		return nil, convertError("getUpdates", err)
	}
	return updates, nil
}

// convertError maps Bot API failures onto model.HTTPError so callers and the
// retry logic see status and retry_after the same way as for other HTTP
// collaborators. Transport errors lose the request URL, which embeds the
// bot token.
func convertError(method string, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &model.HTTPError{
			StatusCode: apiErr.Code,
			RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second,
			Err:        fmt.Errorf("%s: %s", method, apiErr.Message),
		}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return fmt.Errorf("%s: %w", method, err)
}
