package notifier

import (
	"context"
	"strings"
	"time"

	"github.com/amishk599/upfeed/internal/model"
)

// SampleItem is the feed item behind "upfeed notify test". Its body is laid
// out like a real feed item so the configured normalizer extracts the fields
// and renders the date.
func SampleItem(now time.Time) model.FeedItem {
	link := "https://www.upwork.com/nx/find-work/"
	body := strings.Join([]string{
		"If you can read this, delivery to the configured destination works.",
		"Budget: $100",
		"Posted On: " + now.UTC().Format("January 2, 2006 15:04 MST"),
		"Skills: Go",
		"click to apply",
	}, "\n")
	return model.FeedItem{
		ID:          link,
		Title:       "upfeed test notification - Upwork",
		RawBody:     body,
		Link:        link,
		PublishedAt: &now,
	}
}

// Normalizer extracts the structured posting from a feed item.
type Normalizer interface {
	Normalize(item model.FeedItem) model.Posting
}

// Composer renders a posting into a message.
type Composer interface {
	Compose(ctx context.Context, p model.Posting) string
}

// SendTestMessage runs the sample item through normalize and compose and
// dispatches it to verify the integration works.
func SendTestMessage(ctx context.Context, n Normalizer, c Composer, d model.Dispatcher, now time.Time) error {
	return d.Dispatch(ctx, c.Compose(ctx, n.Normalize(SampleItem(now))))
}
