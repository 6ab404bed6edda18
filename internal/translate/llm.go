package translate

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LLMTranslator translates text by prompting an LLM.
type LLMTranslator struct {
	provider LLMProvider
	tmpl     *template.Template
	language string
	timeout  time.Duration
}

// NewLLMTranslator creates a translator into target (a BCP-47 tag) backed by
// provider. A zero timeout leaves the caller's deadline in charge.
func NewLLMTranslator(provider LLMProvider, tmpl *template.Template, target string, timeout time.Duration) *LLMTranslator {
	return &LLMTranslator{
		provider: provider,
		tmpl:     tmpl,
		language: languageName(target),
		timeout:  timeout,
	}
}

// Translate renders the prompt for text and returns the LLM's answer.
func (t *LLMTranslator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	var promptBuf bytes.Buffer
	if err := t.tmpl.Execute(&promptBuf, struct {
		Language string
		Text     string
	}{
		Language: t.language,
		Text:     text,
	}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	out, err := t.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return "", fmt.Errorf("llm translate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// languageName returns the English name of a language tag, e.g. "Russian"
// for "ru". Unknown tags are returned as given.
func languageName(target string) string {
	tag, err := language.Parse(target)
	if err != nil {
		return target
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return target
}
