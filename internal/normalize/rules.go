package normalize

import (
	"regexp"
	"strings"

	"github.com/amishk599/upfeed/internal/model"
)

// rule claims a body line for one structured field. Rules are tried in table
// order and the first match wins; a rule with once set fires at most once
// per item and later lines it matches are dropped.
type rule struct {
	field string
	once  bool
	match func(line string) (label string, ok bool)
	apply func(n *Normalizer, p *model.Posting, label, value string) // nil drops the line
}

var multiSpace = regexp.MustCompile(`\s{2,}`)

// rules is the ordered field table applied to every body line.
var rules = []rule{
	{
		field: model.FieldBudget,
		once:  true,
		match: labelMatcher("Budget", "Hourly Range"),
		apply: func(_ *Normalizer, p *model.Posting, label, value string) {
			kind := model.BudgetFixed
			if label == "Hourly Range" {
				kind = model.BudgetHourly
			}
			p.Budget = &model.Budget{Kind: kind, Amount: value}
		},
	},
	{
		field: model.FieldPostedOn,
		once:  true,
		match: labelMatcher("Posted On"),
		apply: func(n *Normalizer, p *model.Posting, _, value string) {
			if t, ok := parseDate(value); ok {
				p.PostedAt = &t
				p.PostedOn = t.In(n.location).Format(n.dateLayout)
				return
			}
			p.PostedOn = value
		},
	},
	{
		field: model.FieldCountry,
		once:  true,
		match: labelMatcher("Country"),
		apply: func(_ *Normalizer, p *model.Posting, _, value string) {
			p.Country = value
		},
	},
	{
		field: "applyMarker",
		once:  true,
		match: phraseMatcher("click to apply"),
		apply: func(_ *Normalizer, p *model.Posting, _, _ string) {
			p.ApplyMarker = true
		},
	},
	{
		field: model.FieldSkills,
		once:  true,
		match: labelMatcher("Skills"),
		apply: func(_ *Normalizer, p *model.Posting, _, value string) {
			p.Skills = multiSpace.ReplaceAllString(value, " ")
		},
	},
	{
		field: "category",
		match: labelMatcher("Category"),
	},
}

// labelMatcher matches lines of the form "<label>: value" for any of labels.
func labelMatcher(labels ...string) func(string) (string, bool) {
	return func(line string) (string, bool) {
		for _, label := range labels {
			rest, ok := strings.CutPrefix(line, label)
			if !ok {
				continue
			}
			if strings.HasPrefix(strings.TrimSpace(rest), ":") {
				return label, true
			}
		}
		return "", false
	}
}

// phraseMatcher matches lines containing phrase, ignoring case.
func phraseMatcher(phrase string) func(string) (string, bool) {
	phrase = strings.ToLower(phrase)
	return func(line string) (string, bool) {
		if strings.Contains(strings.ToLower(line), phrase) {
			return phrase, true
		}
		return "", false
	}
}

// labelValue returns the text after the label and its colon.
func labelValue(line, label string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(line, label))
	rest = strings.TrimPrefix(rest, ":")
	return strings.TrimSpace(rest)
}
