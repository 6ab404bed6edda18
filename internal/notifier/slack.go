package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/upfeed/internal/model"
)

// Ensure SlackDispatcher implements model.Dispatcher.
var _ model.Dispatcher = (*SlackDispatcher)(nil)

// SlackDispatcher sends messages to a Slack channel via Incoming Webhooks.
type SlackDispatcher struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackDispatcher returns a dispatcher that posts each message to Slack.
func NewSlackDispatcher(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackDispatcher {
	return &SlackDispatcher{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

// Dispatch posts text as mrkdwn. A 429 answer is retried once after the
// Retry-After delay.
func (s *SlackDispatcher) Dispatch(ctx context.Context, text string) error {
	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}

	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}

		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("retry: %w", err)
		}
		if status != http.StatusOK {
			return &model.HTTPError{StatusCode: status, Err: fmt.Errorf("slack returned %d on retry", status)}
		}
		s.logger.Debug("slack message sent", "retried", true)
		return nil
	}

	if status != http.StatusOK {
		return &model.HTTPError{StatusCode: status, Err: fmt.Errorf("slack returned %d", status)}
	}
	s.logger.Debug("slack message sent")
	return nil
}

func (s *SlackDispatcher) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}
