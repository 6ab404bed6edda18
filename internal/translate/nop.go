package translate

import "context"

// NopTranslator returns text unchanged. Used when translator.provider is
// "none" and by the preview command.
type NopTranslator struct{}

// NewNopTranslator returns a NopTranslator.
func NewNopTranslator() *NopTranslator {
	return &NopTranslator{}
}

// Translate returns text unchanged.
func (n *NopTranslator) Translate(_ context.Context, text string) (string, error) {
	return text, nil
}
