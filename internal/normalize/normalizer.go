package normalize

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/amishk599/upfeed/internal/model"
)

// DefaultDateLayout renders dates as day.month.year hour:minute zone.
const DefaultDateLayout = "02.01.2006 15:04 MST"

// postedOnLayouts are tried before falling back to dateparse.
var postedOnLayouts = []string{
	"January 2, 2006 15:04 MST",
	"January 2, 2006 15:04",
	"Jan 2, 2006 15:04 MST",
	"Jan 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006",
}

// Normalizer extracts structured posting fields from a feed item's body.
type Normalizer struct {
	location   *time.Location
	dateLayout string
}

// New returns a Normalizer that renders "Posted On" dates in loc using layout.
// A nil loc means UTC and an empty layout means DefaultDateLayout.
func New(loc *time.Location, layout string) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if layout == "" {
		layout = DefaultDateLayout
	}
	return &Normalizer{location: loc, dateLayout: layout}
}

// Normalize converts item into a Posting holding only the fields found in its
// body. ApplyLink always resolves to the item link.
func (n *Normalizer) Normalize(item model.FeedItem) model.Posting {
	p := model.Posting{Title: item.Title}
	claimed := make(map[string]bool, len(rules))
	var description []string

	for _, raw := range strings.Split(item.RawBody, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		matched := false
		for _, r := range rules {
			label, ok := r.match(line)
			if !ok {
				continue
			}
			matched = true
			if r.once && claimed[r.field] {
				break
			}
			claimed[r.field] = true
			if r.apply != nil {
				r.apply(n, &p, label, labelValue(line, label))
			}
			break
		}
		if !matched {
			description = append(description, line)
		}
	}

	p.Description = strings.Join(description, " ")
	p.ApplyLink = item.Link
	if p.ApplyLink == "" {
		p.ApplyLink = item.ID
	}
	return p
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range postedOnLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
