package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/providers/oaicompat"
	"github.com/sandevgo/recall/pkg/log"
	"github.com/sandevgo/recall/pkg/retry"
	"github.com/sashabaranov/go-openai"
)

// OpenAI embeds text through any OpenAI-compatible /embeddings endpoint
// (OpenAI, Ollama, llama.cpp server, vLLM).
type OpenAI struct {
	client     *openai.Client
	httpClient *http.Client
	model      openai.EmbeddingModel
	dims       int
	maxTokens  int
	retrier    *retry.Retrier
}

type Option func(*OpenAI)

func WithRetrier(r *retry.Retrier) Option {
	return func(o *OpenAI) {
		o.retrier = r
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *OpenAI) {
		o.httpClient = c
	}
}

func NewOpenAI(cfg *config.EmbeddingConfig, opts ...Option) *OpenAI {
	o := &OpenAI{
		model:     openai.EmbeddingModel(cfg.Model),
		dims:      cfg.Dimensions,
		maxTokens: cfg.MaxTokens,
		retrier:   retry.NewDefaultRetrier(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.client = oaicompat.NewClient(cfg.BaseURL, cfg.APIKey, o.httpClient, nil)

	return o
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input", core.ErrEmbeddingUnavailable)
	}

	input := truncateTokens(ctx, text, o.maxTokens)
	req := openai.EmbeddingRequest{
		Input: []string{input},
		Model: o.model,
	}
	// Only the text-embedding-3 family accepts a dimensions override.
	if o.dims > 0 && strings.HasPrefix(string(o.model), "text-embedding-3") {
		req.Dimensions = o.dims
	}

	resp, err := retry.DoValue(ctx, o.retrier, func(ctx context.Context) (openai.EmbeddingResponse, error) {
		resp, err := o.client.CreateEmbeddings(ctx, req)
		if err != nil && !oaicompat.Retryable(err) {
			return resp, retry.Permanent(err)
		}
		return resp, err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("embed: %w", ctxErr)
		}
		log.FromCtx(ctx).Warn().Err(err).Str("model", string(o.model)).Msg("embedding request failed")
		return nil, fmt.Errorf("embed: %w: %w", core.ErrEmbeddingUnavailable, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embed: %w: empty response", core.ErrEmbeddingUnavailable)
	}

	vec := resp.Data[0].Embedding
	if o.dims > 0 && len(vec) != o.dims {
		return nil, fmt.Errorf("embed: %w: got %d dimensions, want %d", core.ErrEmbeddingUnavailable, len(vec), o.dims)
	}
	return vec, nil
}
