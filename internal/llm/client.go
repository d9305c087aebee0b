package llm

import (
	"context"
)

// Request is one generative call: an optional system message and the user
// prompt. Zero Temperature and MaxTokens leave the provider defaults.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	// JSON asks providers that support it for a JSON object response.
	JSON bool
}

type LLMClient interface {
	Generate(ctx context.Context, req Request) (string, error)
}
