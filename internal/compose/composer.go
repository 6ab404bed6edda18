package compose

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/amishk599/upfeed/internal/model"
)

const (
	iconBudget   = "💰"
	iconPostedOn = "📅"
	iconSkills   = "🛠"
	iconCountry  = "🌍"
	iconApply    = "🔗"
)

// DefaultMaxBodyRunes keeps a composed message below Telegram's 4096
// character limit.
const DefaultMaxBodyRunes = 3000

// Composer turns a normalized posting into the final notification text.
type Composer struct {
	translator   model.Translator
	markup       Markup
	labels       Labels
	titleSuffix  string
	maxBodyRunes int
	logger       *slog.Logger
}

// Options configures a Composer.
type Options struct {
	Markup       Markup
	Labels       Labels
	TitleSuffix  string // stripped from the end of item titles
	MaxBodyRunes int    // 0 means DefaultMaxBodyRunes, negative disables truncation
}

// New creates a Composer that translates through translator.
func New(translator model.Translator, opts Options, logger *slog.Logger) *Composer {
	if opts.Markup == nil {
		opts.Markup = Plain{}
	}
	if opts.MaxBodyRunes == 0 {
		opts.MaxBodyRunes = DefaultMaxBodyRunes
	}
	return &Composer{
		translator:   translator,
		markup:       opts.Markup,
		labels:       opts.Labels,
		titleSuffix:  opts.TitleSuffix,
		maxBodyRunes: opts.MaxBodyRunes,
		logger:       logger,
	}
}

// Compose translates the posting's title and description in a single call
// and appends the structured fields. When translation fails the original
// text is used.
func (c *Composer) Compose(ctx context.Context, p model.Posting) string {
	block := c.translatableBlock(p)

	translated, err := c.translator.Translate(ctx, block)
	if err != nil || strings.TrimSpace(translated) == "" {
		c.logger.Warn("translation failed, sending original text", "link", p.ApplyLink, "error", err)
		translated = block
	}

	title, body, _ := strings.Cut(strings.TrimSpace(translated), "\n")
	body = truncate(strings.TrimSpace(body), c.maxBodyRunes)

	var sb strings.Builder
	sb.WriteString(c.markup.Bold(c.markup.Escape(strings.TrimSpace(title))))
	if body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(c.markup.Escape(body))
	}

	if fields := c.fieldLines(p); len(fields) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(strings.Join(fields, "\n"))
	}

	sb.WriteString("\n\n")
	sb.WriteString(iconApply + " " + c.markup.Link(p.ApplyLink, c.markup.Escape(c.labels.Apply)))

	return sb.String()
}

func (c *Composer) translatableBlock(p model.Posting) string {
	title := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p.Title), c.titleSuffix))
	if p.Description == "" {
		return title
	}
	return title + "\n\n" + p.Description
}

// fieldLines renders the present structured fields in fixed order. Absent
// fields produce no line.
func (c *Composer) fieldLines(p model.Posting) []string {
	var lines []string
	if p.Budget != nil {
		label := c.labels.Budget
		if p.Budget.Kind == model.BudgetHourly {
			label = c.labels.Hourly
		}
		lines = append(lines, c.labeled(iconBudget, label, p.Budget.Amount))
	}
	if p.PostedOn != "" {
		lines = append(lines, c.labeled(iconPostedOn, c.labels.PostedOn, p.PostedOn))
	}
	if p.Skills != "" {
		lines = append(lines, c.labeled(iconSkills, c.labels.Skills, p.Skills))
	}
	if p.Country != "" {
		lines = append(lines, c.labeled(iconCountry, c.labels.Country, p.Country))
	}
	return lines
}

func (c *Composer) labeled(icon, label, value string) string {
	return icon + " " + c.markup.Bold(c.markup.Escape(label+":")) + " " + c.markup.Escape(value)
}

func truncate(s string, max int) string {
	if max < 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "…"
}
