package telegram

import (
	"context"

	"github.com/amishk599/upfeed/internal/model"
)

// Greeting is the reply to /start.
const Greeting = "Hello, I'm Upwork RSS Bot"

// Ensure Dispatcher implements model.Dispatcher.
var _ model.Dispatcher = (*Dispatcher)(nil)

// Dispatcher delivers messages to the one configured chat.
type Dispatcher struct {
	client *Client
	chatID string
}

// NewDispatcher returns a dispatcher sending to chatID.
func NewDispatcher(client *Client, chatID string) *Dispatcher {
	return &Dispatcher{client: client, chatID: chatID}
}

// Dispatch sends text to the configured chat.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) error {
	return d.client.SendMessage(ctx, d.chatID, text)
}

// Greet sends the static greeting to chatID.
func (d *Dispatcher) Greet(ctx context.Context, chatID string) error {
	return d.client.SendMessage(ctx, chatID, Greeting)
}
