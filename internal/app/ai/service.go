/*
Package ai defines the text-generation collaborator interface.

The coordination core never touches this service; only the AI-chat and
translation request/response paths consume it, outside the fan-out path.
*/
package ai

import (
	"context"
	"fmt"
)

// TextGenerator is the boundary to the external text-generation service.
type TextGenerator interface {
	// Complete produces an assistant reply to message, optionally grounded in
	// prior conversation lines.
	Complete(ctx context.Context, message string, context []string) (string, error)

	// Translate renders text into targetLanguage, returning only the translation.
	Translate(ctx context.Context, text, targetLanguage string) (string, error)

	// Moderate reports whether text is acceptable. It fails open: an
	// unavailable moderator treats content as safe.
	Moderate(ctx context.Context, text string) bool
}

// ServiceConfig holds what the concrete implementation needs to reach the provider.
type ServiceConfig struct {
	APIKey string

	// BaseURL overrides the provider endpoint, for tests.
	BaseURL string
}

// NewTextGenerator is the factory for TextGenerator.
// Currently only the Gemini implementation exists.
func NewTextGenerator(cfg ServiceConfig) (TextGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("text generation requires an API key")
	}
	return newGeminiClient(cfg), nil
}
