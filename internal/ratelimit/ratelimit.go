package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/amishk599/upfeed/internal/model"
)

// RateLimitedDispatcher is a decorator that throttles sends before
// delegating to the wrapped Dispatcher. Concurrent callers share one budget.
type RateLimitedDispatcher struct {
	inner   model.Dispatcher
	limiter *rate.Limiter
}

// NewRateLimitedDispatcher wraps inner so that at most perSecond messages are
// sent per second, with no bursting beyond a single message.
func NewRateLimitedDispatcher(inner model.Dispatcher, perSecond float64) *RateLimitedDispatcher {
	return &RateLimitedDispatcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Dispatch waits for the limiter to allow a send, then delegates.
// Returns an error if the context is cancelled while waiting.
func (d *RateLimitedDispatcher) Dispatch(ctx context.Context, text string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return d.inner.Dispatch(ctx, text)
}
