package compose

import "golang.org/x/text/language"

// Labels are the captions printed in front of the structured fields.
type Labels struct {
	Budget   string
	Hourly   string
	PostedOn string
	Skills   string
	Country  string
	Apply    string
}

var russianLabels = Labels{
	Budget:   "Бюджет",
	Hourly:   "Часовая ставка",
	PostedOn: "Опубликовано",
	Skills:   "Навыки",
	Country:  "Страна",
	Apply:    "Нажмите, чтобы подать заявку",
}

var englishLabels = Labels{
	Budget:   "Budget",
	Hourly:   "Hourly Range",
	PostedOn: "Posted",
	Skills:   "Skills",
	Country:  "Country",
	Apply:    "Click to apply",
}

var (
	labelTags    = []language.Tag{language.English, language.Russian}
	labelSets    = []Labels{englishLabels, russianLabels}
	labelMatcher = language.NewMatcher(labelTags)
)

// LabelsFor picks the label set closest to the target language, falling back
// to English.
func LabelsFor(target string) Labels {
	tag, err := language.Parse(target)
	if err != nil {
		return englishLabels
	}
	_, idx, conf := labelMatcher.Match(tag)
	if conf == language.No {
		return englishLabels
	}
	return labelSets[idx]
}
