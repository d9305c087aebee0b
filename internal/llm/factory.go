package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/recipemerge/internal/config"
	"github.com/agenthands/recipemerge/internal/logger"
)

func NewClient(ctx context.Context, cfg config.LLMConfig, log *logger.Logger) (LLMClient, error) {
	if log == nil {
		log = logger.NewNop()
	}
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		baseURL := OllamaBaseURL(cfg.BaseURL)
		log.Info("Initializing Ollama via OpenAI-compatible API", "base_url", baseURL, "model", cfg.Model)

		// Ollama ignores the key but the client requires one.
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// OllamaBaseURL points a bare Ollama address at its OpenAI-compatible /v1
// endpoint.
func OllamaBaseURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
}
