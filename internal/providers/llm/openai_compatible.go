package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/providers/oaicompat"
	"github.com/sandevgo/recall/pkg/log"
	"github.com/sandevgo/recall/pkg/retry"
	"github.com/sashabaranov/go-openai"
)

const requestTimeout = 120 * time.Second

// OpenAICompatible talks to any server exposing /v1/chat/completions.
type OpenAICompatible struct {
	client    *openai.Client
	baseURL   string
	model     string
	maxTokens int
	retrier   *retry.Retrier
}

type OpenAICompatibleConfig struct {
	// BaseURL without the /v1 suffix, e.g. https://api.openai.com
	BaseURL      string
	APIKey       string
	Model        string
	MaxTokens    int // zero leaves the server default
	ExtraHeaders map[string]string
	// HTTPClient and Retrier fall back to a client with requestTimeout and
	// retry.NewDefaultRetrier.
	HTTPClient *http.Client
	Retrier    *retry.Retrier
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	retrier := cfg.Retrier
	if retrier == nil {
		retrier = retry.NewDefaultRetrier()
	}

	return &OpenAICompatible{
		client:    oaicompat.NewClient(baseURL+"/v1", cfg.APIKey, httpClient, cfg.ExtraHeaders),
		baseURL:   baseURL,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		retrier:   retrier,
	}
}

func (o *OpenAICompatible) Chat(ctx context.Context, history []core.Message) (core.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  make([]openai.ChatCompletionMessage, 0, len(history)),
		MaxTokens: o.maxTokens,
	}
	for _, m := range history {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := retry.DoValue(ctx, o.retrier, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil && !oaicompat.Retryable(err) {
			return resp, retry.Permanent(err)
		}
		return resp, err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.Message{}, fmt.Errorf("chat: %w", ctxErr)
		}
		return core.Message{}, fmt.Errorf("chat: %w", err)
	}

	if len(resp.Choices) == 0 {
		return core.Message{}, fmt.Errorf("chat: empty choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		log.FromCtx(ctx).Warn().Str("model", o.model).Msg("chat completion truncated by max tokens")
	}
	return core.Message{Role: choice.Message.Role, Content: choice.Message.Content}, nil
}
