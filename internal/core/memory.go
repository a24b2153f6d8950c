package core

import "context"

// ContextRetriever is consumed by message handlers to build prompt context.
type ContextRetriever interface {
	GetContext(ctx context.Context, userID, message, channelID string) ([]ContextItem, error)
	GetContextWithOptions(ctx context.Context, userID, message, channelID string, opts RetrievalOptions) ([]ContextItem, error)
	FormatContext(message string, items []ContextItem) string
}

type RetrievalOptions struct {
	// DisableSemantic skips long-term retrieval regardless of the trigger decision.
	DisableSemantic bool
}

// TurnRecorder persists a completed conversation turn.
type TurnRecorder interface {
	SaveTurn(ctx context.Context, turn TurnInput) (int64, error)
}

type TurnInput struct {
	UserID         string
	ChannelID      string
	UserMessage    string
	AssistantReply string // empty when the bot did not answer
	Topic          string
	Tags           []string
	Metadata       map[string]any
}
