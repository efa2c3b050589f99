package ai

import (
	"context"
)

// Prompt types known to the bundled prompt set
const (
	PromptTutor    = "tutor"
	PromptChat     = "chat"
	PromptMotivate = "motivate"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	defaultUserMessage = "Please generate content"
)

// Request describes one completion call.
type Request struct {
	PromptType        string
	UserMessage       string
	AdditionalContext string
	Temperature       float64
	MaxTokens         int
}

// Generator returns free text for a request or an *Error.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GenerateWithFallback returns the generated text, or fallback when the
// generator fails or answers with nothing.
func GenerateWithFallback(ctx context.Context, g Generator, req Request, fallback string) string {
	text, err := g.Generate(ctx, req)
	if err != nil || text == "" {
		return fallback
	}
	return text
}
