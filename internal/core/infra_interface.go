package core

import "context"

// LLMProvider generates an assistant answer for a composed prompt.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TextExtractor converts a raw document buffer into plain text. The declared
// type takes precedence over the source URL's extension.
type TextExtractor interface {
	Extract(content []byte, sourceURL, declaredType string) (string, error)
}
