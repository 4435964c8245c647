package provider

import (
	"context"
	"fmt"

	"kustoscope/internal/config"
)

// NewClient creates an LLM client from the resolved configuration.
func NewClient(ctx context.Context, cfg *config.Config) (LLMClient, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q (set KUSTOSCOPE_API_KEY or the provider's key variable)", cfg.LLM.Provider)
	}

	switch cfg.LLM.Provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.LLM.Provider)
	}
}
