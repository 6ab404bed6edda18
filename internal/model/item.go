package model

import (
	"context"
	"time"
)

// FeedItem is one entry of the watched feed. Items are re-fetched every cycle
// and discarded once processed.
type FeedItem struct {
	ID          string     // canonical link, unique per feed
	Title       string     // raw title as published
	RawBody     string     // plain multi-line text body
	Link        string     // item link
	PublishedAt *time.Time // nullable (not every feed sets pubDate)
}

// BudgetKind tells a fixed-price budget apart from an hourly range.
type BudgetKind string

const (
	BudgetFixed  BudgetKind = "fixed"
	BudgetHourly BudgetKind = "hourly"
)

// Budget is the value of a "Budget" or "Hourly Range" line.
type Budget struct {
	Kind   BudgetKind
	Amount string
}

// Posting is the structured record extracted from a feed item's body.
// Optional fields are left at their zero value when absent.
type Posting struct {
	Title       string
	Description string
	Budget      *Budget
	PostedOn    string     // rendered in the configured timezone and layout
	PostedAt    *time.Time // nil when the date could not be parsed
	Country     string
	Skills      string
	ApplyLink   string // never empty, falls back to the item link
	ApplyMarker bool   // body carried an explicit apply marker
}

// Field names reported by Posting.Fields.
const (
	FieldBudget      = "budget"
	FieldPostedOn    = "postedOn"
	FieldSkills      = "skills"
	FieldCountry     = "country"
	FieldDescription = "description"
	FieldApplyLink   = "applyLink"
)

// Fields returns the names of the fields actually present on the posting.
func (p Posting) Fields() []string {
	var fields []string
	if p.Budget != nil {
		fields = append(fields, FieldBudget)
	}
	if p.PostedOn != "" {
		fields = append(fields, FieldPostedOn)
	}
	if p.Skills != "" {
		fields = append(fields, FieldSkills)
	}
	if p.Country != "" {
		fields = append(fields, FieldCountry)
	}
	if p.Description != "" {
		fields = append(fields, FieldDescription)
	}
	if p.ApplyLink != "" {
		fields = append(fields, FieldApplyLink)
	}
	return fields
}

// FeedFetcher retrieves the current window of feed items.
type FeedFetcher interface {
	FetchItems(ctx context.Context) ([]FeedItem, error)
}

// SeenStore is the persisted set of processed item ids.
type SeenStore interface {
	HasSeen(id string) bool
	MarkSeen(id string)
	Persist(ctx context.Context) error
	Reset()
	Len() int
}

// Translator translates text into a fixed target language, auto-detecting
// the source language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Dispatcher delivers a final message to the one configured destination.
type Dispatcher interface {
	Dispatch(ctx context.Context, text string) error
}

// PostingFilter decides whether a posting should be dispatched.
type PostingFilter interface {
	Match(item FeedItem, posting Posting) bool
}
