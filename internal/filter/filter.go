package filter

import (
	"strings"

	"github.com/amishk599/upfeed/internal/model"
)

// Ensure ExclusionFilter implements model.PostingFilter.
var _ model.PostingFilter = (*ExclusionFilter)(nil)

// ExclusionFilter rejects postings whose title contains any excluded keyword
// or whose country is excluded. Matching is case-insensitive. Empty lists
// exclude nothing.
type ExclusionFilter struct {
	titleKeywords []string
	countries     []string
}

// NewExclusionFilter returns a filter over the given exclusion lists.
// Title keywords match as substrings, countries must match exactly.
func NewExclusionFilter(titleKeywords, countries []string) *ExclusionFilter {
	return &ExclusionFilter{
		titleKeywords: lowerAll(titleKeywords),
		countries:     lowerAll(countries),
	}
}

// Match returns true if the posting should be dispatched.
func (f *ExclusionFilter) Match(item model.FeedItem, posting model.Posting) bool {
	titleLower := strings.ToLower(item.Title)
	for _, kw := range f.titleKeywords {
		if strings.Contains(titleLower, kw) {
			return false
		}
	}

	if posting.Country != "" {
		countryLower := strings.ToLower(strings.TrimSpace(posting.Country))
		for _, c := range f.countries {
			if countryLower == c {
				return false
			}
		}
	}

	return true
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
