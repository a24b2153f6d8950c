package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

const defaultTopic = "unspecified"

// Recorder persists a user message and the optional reply as one turn.
// The turn embedding is computed from the user message only.
type Recorder struct {
	store    core.ConversationStore
	embedder core.Embedder
	platform string
	now      func() time.Time
	newID    func() string
}

func NewRecorder(store core.ConversationStore, embedder core.Embedder, platform string) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("conversation store: %w", core.ErrNotInitialized)
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder: %w", core.ErrNotInitialized)
	}

	return &Recorder{
		store:    store,
		embedder: embedder,
		platform: platform,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

func (r *Recorder) SaveTurn(ctx context.Context, in core.TurnInput) (int64, error) {
	payload, err := r.buildPayload(in)
	if err != nil {
		return 0, err
	}

	vec, err := r.embedder.Embed(ctx, in.UserMessage)
	if err != nil {
		turnsRecorded.WithLabelValues(resultError).Inc()
		return 0, fmt.Errorf("failed to embed turn: %w", err)
	}

	id, err := r.store.InsertTurn(ctx, in.UserID, in.ChannelID, payload, vec)
	if err != nil {
		turnsRecorded.WithLabelValues(resultError).Inc()
		return 0, fmt.Errorf("failed to save turn: %w", err)
	}

	turnsRecorded.WithLabelValues(resultOK).Inc()
	log.FromCtx(ctx).Debug().
		Int64("turn_id", id).
		Int("messages", payload.MessageCount).
		Msg("turn saved")

	return id, nil
}

func (r *Recorder) buildPayload(in core.TurnInput) (core.TurnPayload, error) {
	ts := r.now().UTC().Format(time.RFC3339)

	messages := []core.TurnMessage{
		{Role: core.RoleUser, Content: in.UserMessage, Timestamp: ts},
	}
	if in.AssistantReply != "" {
		messages = append(messages, core.TurnMessage{
			Role:      core.RoleAssistant,
			Content:   in.AssistantReply,
			Timestamp: ts,
		})
	}

	topic := in.Topic
	if topic == "" {
		topic = defaultTopic
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	metadata := json.RawMessage(`{}`)
	if len(in.Metadata) > 0 {
		data, err := json.Marshal(in.Metadata)
		if err != nil {
			return core.TurnPayload{}, fmt.Errorf("failed to marshal turn metadata: %w", err)
		}
		metadata = data
	}

	return core.TurnPayload{
		Messages:     messages,
		MessageCount: len(messages),
		Topic:        topic,
		Tags:         tags,
		Source:       fmt.Sprintf("%s_channel:%s", r.platform, in.ChannelID),
		ContextID:    r.newID(),
		Metadata:     metadata,
	}, nil
}
