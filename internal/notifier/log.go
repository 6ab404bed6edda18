package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/upfeed/internal/model"
)

// Ensure LogDispatcher implements model.Dispatcher.
var _ model.Dispatcher = (*LogDispatcher)(nil)

// LogDispatcher writes composed messages to the given logger.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher returns a dispatcher that logs each message via slog.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the message. Returns nil (stdout logging does not fail).
func (d *LogDispatcher) Dispatch(_ context.Context, text string) error {
	d.logger.Info("new posting", "message", text)
	return nil
}
