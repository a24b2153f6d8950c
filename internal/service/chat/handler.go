package chat

import (
	"context"
	"errors"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// FallbackReply is sent when the chat model fails.
const FallbackReply = "Sorry, something went wrong on my side. Please try again in a moment."

// Inbound is a text message received from a chat platform.
type Inbound struct {
	UserID    string
	ChannelID string
	Text      string
	// Direct is set for private chats, mentions and replies to the bot.
	Direct bool
}

type Handler struct {
	retriever core.ContextRetriever
	recorder  core.TurnRecorder
	ai        core.AIProvider
	prompter  *SysPrompt
	intent    *Intent
}

func NewHandler(
	retriever core.ContextRetriever,
	recorder core.TurnRecorder,
	ai core.AIProvider,
	prompter *SysPrompt,
	intent *Intent,
) *Handler {
	return &Handler{
		retriever: retriever,
		recorder:  recorder,
		ai:        ai,
		prompter:  prompter,
		intent:    intent,
	}
}

// Handle records every inbound message and answers the ones addressed to
// the bot. The reply is empty when the bot stays silent.
func (h *Handler) Handle(ctx context.Context, in Inbound) (string, error) {
	if in.Direct || h.intent.Matches(in.Text) {
		return h.Reply(ctx, in.UserID, in.ChannelID, in.Text)
	}

	ctx = log.WithConversation(ctx, in.UserID, in.ChannelID)
	_, err := h.recorder.SaveTurn(ctx, core.TurnInput{
		UserID:      in.UserID,
		ChannelID:   in.ChannelID,
		UserMessage: in.Text,
	})
	switch {
	case isCancelled(err):
		return "", err
	case err != nil:
		log.FromCtx(ctx).Error().Err(err).Msg("failed to record message")
	}
	return "", nil
}

// Reply answers one inbound message and records the turn.
// Only cancellation of ctx is returned as an error, every other failure
// degrades the answer instead.
func (h *Handler) Reply(ctx context.Context, userID, channelID, text string) (string, error) {
	ctx = log.WithConversation(ctx, userID, channelID)
	logger := log.FromCtx(ctx)

	items, err := h.retrieve(ctx, userID, channelID, text)
	if err != nil {
		return "", err
	}

	messages := h.prompter.Build(h.retriever.FormatContext(text, items), text)

	reply := FallbackReply
	answered := false
	resp, err := h.ai.Chat(ctx, messages)
	switch {
	case isCancelled(err):
		return "", err
	case err != nil:
		logger.Error().Err(err).Msg("chat completion failed")
	case resp.Content == "":
		logger.Warn().Msg("chat completion returned empty content")
	default:
		reply = resp.Content
		answered = true
	}

	turn := core.TurnInput{
		UserID:      userID,
		ChannelID:   channelID,
		UserMessage: text,
	}
	if answered {
		turn.AssistantReply = reply
	}
	if _, err := h.recorder.SaveTurn(ctx, turn); err != nil {
		logger.Error().Err(err).Msg("failed to record turn")
	}

	return reply, nil
}

// retrieve tries full retrieval, then recent-only, then no context at all.
func (h *Handler) retrieve(ctx context.Context, userID, channelID, text string) ([]core.ContextItem, error) {
	logger := log.FromCtx(ctx)

	items, err := h.retriever.GetContext(ctx, userID, text, channelID)
	if err == nil {
		return items, nil
	}
	if isCancelled(err) {
		return nil, err
	}
	logger.Warn().Err(err).Msg("context retrieval failed, retrying without semantic search")

	items, err = h.retriever.GetContextWithOptions(ctx, userID, text, channelID, core.RetrievalOptions{DisableSemantic: true})
	if err == nil {
		return items, nil
	}
	if isCancelled(err) {
		return nil, err
	}
	logger.Error().Err(err).Msg("recent context unavailable, answering without context")

	return nil, nil
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
