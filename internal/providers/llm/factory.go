package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

const (
	openAIBaseURL     = "https://api.openai.com"
	openRouterBaseURL = "https://openrouter.ai/api"
	repositoryURL     = "https://github.com/sandevgo/recall"
)

// NewProvider creates the chat provider selected by configuration.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	pc := OpenAICompatibleConfig{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	}

	switch cfg.Provider {
	case "openai":
		pc.BaseURL, pc.APIKey = openAIBaseURL, cfg.OpenAIAPIKey
	case "openrouter":
		pc.BaseURL, pc.APIKey = openRouterBaseURL, cfg.OpenRouterAPIKey
		pc.ExtraHeaders = map[string]string{
			"HTTP-Referer": repositoryURL,
			"X-Title":      core.AppName,
		}
	case "ollama":
		pc.BaseURL, pc.APIKey = cfg.OllamaBaseURL, cfg.OllamaAPIKey
	case "custom":
		if cfg.CustomOpenAIBaseURL == "" {
			return nil, fmt.Errorf("custom llm provider requires CUSTOM_OPENAI_BASE_URL")
		}
		pc.BaseURL, pc.APIKey = cfg.CustomOpenAIBaseURL, cfg.CustomOpenAIAPIKey
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}

	return NewOpenAICompatible(pc), nil
}
