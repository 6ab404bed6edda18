package preview

import (
	"context"

	"github.com/amishk599/upfeed/internal/model"
)

// Normalizer extracts the structured posting from a feed item.
type Normalizer interface {
	Normalize(item model.FeedItem) model.Posting
}

// Composer renders a posting into the final message text.
type Composer interface {
	Compose(ctx context.Context, p model.Posting) string
}

// Entry is one feed item as the pipeline would see it.
type Entry struct {
	Item     model.FeedItem
	Posting  model.Posting
	Message  string
	Seen     bool
	Excluded bool
}

// BuildEntries runs every item through normalize, filter and compose without
// dispatching or touching the store. filter may be nil.
func BuildEntries(
	ctx context.Context,
	items []model.FeedItem,
	seen interface{ HasSeen(id string) bool },
	normalizer Normalizer,
	filter model.PostingFilter,
	composer Composer,
) []Entry {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		posting := normalizer.Normalize(item)
		entries = append(entries, Entry{
			Item:     item,
			Posting:  posting,
			Message:  composer.Compose(ctx, posting),
			Seen:     seen.HasSeen(item.ID),
			Excluded: filter != nil && !filter.Match(item, posting),
		})
	}
	return entries
}

// status is the short label shown next to an entry in the list.
func (e Entry) status() string {
	switch {
	case e.Seen:
		return "seen"
	case e.Excluded:
		return "filtered"
	default:
		return "new"
	}
}
