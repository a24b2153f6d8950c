package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/recall/pkg/log"
)

type EmbeddingConfig struct {
	BaseURL    string `env:"RECALL_EMBEDDING_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey     string `env:"RECALL_EMBEDDING_API_KEY"`
	Model      string `env:"RECALL_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	Dimensions int    `env:"RECALL_EMBEDDING_DIMENSIONS" envDefault:"1536"`
	// MaxTokens bounds the input sent to the model; longer text is truncated.
	MaxTokens int `env:"RECALL_EMBEDDING_MAX_TOKENS" envDefault:"8191"`
}

func NewEmbeddingConfig(ctx context.Context) *EmbeddingConfig {
	c := &EmbeddingConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Embedding config")
	}
	return c
}
