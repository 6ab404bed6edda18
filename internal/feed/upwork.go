package feed

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/amishk599/upfeed/internal/config"
	"github.com/amishk599/upfeed/internal/model"
)

// maxFeedBytes caps how much of a feed response is read.
const maxFeedBytes = 8 << 20

// BuildURL returns the saved-search feed URL: the configured base URL plus
// the fixed search filters, credentials and any extra parameters.
func BuildURL(cfg config.FeedConfig) (string, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse feed base url: %w", err)
	}

	q := u.Query()
	q.Set("client_hires", "1-9,10-")
	q.Set("payment_verified", "1")
	q.Set("proposals", "0-4,5-9,10-14")
	q.Set("q", cfg.Query)
	q.Set("sort", "recency")
	q.Set("t", "1")
	q.Set("api_params", "1")
	q.Set("securityToken", cfg.SecurityToken)
	q.Set("userUid", cfg.UserUID)
	q.Set("orgUid", cfg.OrgUID)
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// UpworkFetcher fetches a saved-search RSS feed and turns its entries into
// feed items.
type UpworkFetcher struct {
	url    string
	client *http.Client
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewUpworkFetcher creates a fetcher for the feed described by cfg.
func NewUpworkFetcher(cfg config.FeedConfig, client *http.Client, logger *slog.Logger) (*UpworkFetcher, error) {
	u, err := BuildURL(cfg)
	if err != nil {
		return nil, err
	}
	return &UpworkFetcher{
		url:    u,
		client: client,
		parser: gofeed.NewParser(),
		logger: logger,
	}, nil
}

// FetchItems retrieves the current feed window in feed order.
func (f *UpworkFetcher) FetchItems(ctx context.Context) ([]model.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &model.FetchError{URL: f.url, Err: err}
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")
	req.Header.Set("User-Agent", "upfeed/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &model.FetchError{URL: f.url, Err: redactURL(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.FetchError{URL: f.url, Err: &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, &model.FetchError{URL: f.url, Err: fmt.Errorf("read body: %w", err)}
	}

	return f.parse(body)
}

func (f *UpworkFetcher) parse(body []byte) ([]model.FeedItem, error) {
	parsed, err := f.parser.ParseString(string(body))
	if err != nil {
		return nil, &model.ParseError{Err: err}
	}

	items := make([]model.FeedItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		id := cmp.Or(strings.TrimSpace(it.Link), strings.TrimSpace(it.GUID))
		if id == "" {
			f.logger.Warn("skipping feed item without link or guid", "title", it.Title)
			continue
		}

		body, err := HTMLToText(cmp.Or(it.Content, it.Description))
		if err != nil {
			f.logger.Warn("could not convert item body to text, using raw body", "item", id, "error", err)
			body = cmp.Or(it.Content, it.Description)
		}

		item := model.FeedItem{
			ID:      id,
			Title:   strings.TrimSpace(it.Title),
			RawBody: body,
			Link:    cmp.Or(strings.TrimSpace(it.Link), id),
		}
		if it.PublishedParsed != nil {
			t := *it.PublishedParsed
			item.PublishedAt = &t
		}
		items = append(items, item)
	}

	f.logger.Debug("parsed feed", "title", parsed.Title, "items", len(items))
	return items, nil
}

// redactURL strips the request URL (and with it the security token) from
// transport errors.
func redactURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s request: %w", uerr.Op, uerr.Err)
	}
	return err
}
