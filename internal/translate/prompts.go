package translate

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/translate.md
var translatePromptRaw string

// TranslateTemplate is the parsed prompt template for LLM translation.
// Parsed once at package init; reused on every Translate call.
var TranslateTemplate = template.Must(template.New("translate").Parse(translatePromptRaw))
