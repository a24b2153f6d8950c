package embedding

import (
	"context"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/recall/pkg/log"
)

var (
	tk     *tiktoken.Tiktoken
	tkErr  error
	tkOnce sync.Once
)

func getTokenizer() (*tiktoken.Tiktoken, error) {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding("cl100k_base")
	})
	return tk, tkErr
}

// truncateTokens cuts text to at most maxTokens cl100k tokens.
func truncateTokens(ctx context.Context, text string, maxTokens int) string {
	// every token covers at least one byte
	if maxTokens <= 0 || len(text) <= maxTokens {
		return text
	}

	enc, err := getTokenizer()
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("tokenizer unavailable, truncating by runes")
		runes := []rune(text)
		if len(runes) > maxTokens {
			return string(runes[:maxTokens])
		}
		return text
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}
