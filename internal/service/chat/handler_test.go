package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/recall/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRetriever struct {
	getFunc   func(opts core.RetrievalOptions) ([]core.ContextItem, error)
	calls     []core.RetrievalOptions
	formatted string
}

func (m *mockRetriever) GetContext(ctx context.Context, userID, message, channelID string) ([]core.ContextItem, error) {
	return m.GetContextWithOptions(ctx, userID, message, channelID, core.RetrievalOptions{})
}

func (m *mockRetriever) GetContextWithOptions(_ context.Context, _, _, _ string, opts core.RetrievalOptions) ([]core.ContextItem, error) {
	m.calls = append(m.calls, opts)
	if m.getFunc != nil {
		return m.getFunc(opts)
	}
	return nil, nil
}

func (m *mockRetriever) FormatContext(_ string, items []core.ContextItem) string {
	if len(items) == 0 {
		return ""
	}
	return m.formatted
}

type mockRecorder struct {
	turns []core.TurnInput
	err   error
}

func (m *mockRecorder) SaveTurn(_ context.Context, turn core.TurnInput) (int64, error) {
	m.turns = append(m.turns, turn)
	return int64(len(m.turns)), m.err
}

type mockAI struct {
	chatFunc func(history []core.Message) (core.Message, error)
	history  []core.Message
}

func (m *mockAI) Chat(_ context.Context, history []core.Message) (core.Message, error) {
	m.history = history
	if m.chatFunc != nil {
		return m.chatFunc(history)
	}
	return core.Message{Role: core.RoleAssistant, Content: "sure"}, nil
}

func oneItem() []core.ContextItem {
	return []core.ContextItem{{
		Messages:  []core.Message{{Role: core.RoleUser, Content: "earlier"}},
		Timestamp: time.Now(),
		Kind:      core.KindRecent,
	}}
}

func TestHandler_Reply(t *testing.T) {
	retriever := &mockRetriever{
		getFunc:   func(core.RetrievalOptions) ([]core.ContextItem, error) { return oneItem(), nil },
		formatted: "Previous conversation context:\nCONTEXT",
	}
	recorder := &mockRecorder{}
	ai := &mockAI{}

	h := NewHandler(retriever, recorder, ai, NewSysPrompt(filepath.Join(t.TempDir(), "missing.md")), nil)
	reply, err := h.Reply(context.Background(), "u1", "c1", "and then?")
	require.NoError(t, err)

	assert.Equal(t, "sure", reply)
	require.Len(t, ai.history, 2)
	assert.Equal(t, core.RoleSystem, ai.history[0].Role)
	assert.True(t, strings.HasPrefix(ai.history[0].Content, defaultSystemPrompt))
	assert.True(t, strings.HasSuffix(ai.history[0].Content, "\n\nPrevious conversation context:\nCONTEXT"))
	assert.Equal(t, core.Message{Role: core.RoleUser, Content: "and then?"}, ai.history[1])

	assert.Equal(t, []core.RetrievalOptions{{}}, retriever.calls)
	assert.Equal(t, []core.TurnInput{{
		UserID:         "u1",
		ChannelID:      "c1",
		UserMessage:    "and then?",
		AssistantReply: "sure",
	}}, recorder.turns)
}

func TestHandler_Reply_RetrievalDegrades(t *testing.T) {
	tests := []struct {
		name       string
		getFunc    func(opts core.RetrievalOptions) ([]core.ContextItem, error)
		wantCalls  int
		wantSystem string
	}{
		{
			name: "recent only after semantic failure",
			getFunc: func(opts core.RetrievalOptions) ([]core.ContextItem, error) {
				if !opts.DisableSemantic {
					return nil, core.ErrEmbeddingUnavailable
				}
				return oneItem(), nil
			},
			wantCalls:  2,
			wantSystem: defaultSystemPrompt + "\n\nCTX",
		},
		{
			name: "no context when the store is down",
			getFunc: func(core.RetrievalOptions) ([]core.ContextItem, error) {
				return nil, core.ErrStoreUnavailable
			},
			wantCalls:  2,
			wantSystem: defaultSystemPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := &mockRetriever{getFunc: tt.getFunc, formatted: "CTX"}
			ai := &mockAI{}
			h := NewHandler(retriever, &mockRecorder{}, ai, NewSysPrompt(""), nil)

			reply, err := h.Reply(context.Background(), "u1", "c1", "hi")
			require.NoError(t, err)
			assert.Equal(t, "sure", reply)
			assert.Len(t, retriever.calls, tt.wantCalls)
			assert.True(t, retriever.calls[len(retriever.calls)-1].DisableSemantic)
			assert.Equal(t, tt.wantSystem, ai.history[0].Content)
		})
	}
}

func TestHandler_Reply_Cancelled(t *testing.T) {
	retriever := &mockRetriever{getFunc: func(core.RetrievalOptions) ([]core.ContextItem, error) {
		return nil, context.Canceled
	}}
	recorder := &mockRecorder{}
	ai := &mockAI{}

	_, err := NewHandler(retriever, recorder, ai, NewSysPrompt(""), nil).Reply(context.Background(), "u1", "c1", "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, retriever.calls, 1)
	assert.Nil(t, ai.history)
	assert.Empty(t, recorder.turns)
}

func TestHandler_Reply_ChatFailure(t *testing.T) {
	recorder := &mockRecorder{}
	ai := &mockAI{chatFunc: func([]core.Message) (core.Message, error) {
		return core.Message{}, errors.New("http 500")
	}}

	reply, err := NewHandler(&mockRetriever{}, recorder, ai, NewSysPrompt(""), nil).Reply(context.Background(), "u1", "c1", "hi")
	require.NoError(t, err)

	assert.Equal(t, FallbackReply, reply)
	require.Len(t, recorder.turns, 1)
	assert.Empty(t, recorder.turns[0].AssistantReply)
}

func TestHandler_Reply_RecorderFailureIsLogged(t *testing.T) {
	recorder := &mockRecorder{err: core.ErrStoreUnavailable}

	reply, err := NewHandler(&mockRetriever{}, recorder, &mockAI{}, NewSysPrompt(""), nil).Reply(context.Background(), "u1", "c1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "sure", reply)
}

func TestSysPrompt_Build(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SYSTEM.md")
	require.NoError(t, os.WriteFile(path, []byte("You are Sena."), 0o644))

	msgs := NewSysPrompt(path).Build("", "hello")
	assert.Equal(t, []core.Message{
		{Role: core.RoleSystem, Content: "You are Sena."},
		{Role: core.RoleUser, Content: "hello"},
	}, msgs)

	msgs = NewSysPrompt(path).Build("ctx block", "hello")
	assert.Equal(t, "You are Sena.\n\nctx block", msgs[0].Content)
}

func TestHandler_Handle(t *testing.T) {
	tests := []struct {
		name      string
		in        Inbound
		wantReply string
		wantTurn  core.TurnInput
	}{
		{
			name:      "direct message is answered",
			in:        Inbound{UserID: "u1", ChannelID: "c1", Text: "hello", Direct: true},
			wantReply: "sure",
			wantTurn:  core.TurnInput{UserID: "u1", ChannelID: "c1", UserMessage: "hello", AssistantReply: "sure"},
		},
		{
			name:      "addressed by name",
			in:        Inbound{UserID: "u1", ChannelID: "c1", Text: "hey Sena, what's up"},
			wantReply: "sure",
			wantTurn:  core.TurnInput{UserID: "u1", ChannelID: "c1", UserMessage: "hey Sena, what's up", AssistantReply: "sure"},
		},
		{
			name:     "group chatter is only recorded",
			in:       Inbound{UserID: "u1", ChannelID: "c1", Text: "lunch anyone?"},
			wantTurn: core.TurnInput{UserID: "u1", ChannelID: "c1", UserMessage: "lunch anyone?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &mockRecorder{}
			ai := &mockAI{}
			h := NewHandler(&mockRetriever{}, recorder, ai, NewSysPrompt(""), NewIntent([]string{"sena"}))

			reply, err := h.Handle(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReply, reply)
			assert.Equal(t, []core.TurnInput{tt.wantTurn}, recorder.turns)
			if tt.wantReply == "" {
				assert.Nil(t, ai.history)
			}
		})
	}
}

func TestIntent_Matches(t *testing.T) {
	intent := NewIntent([]string{"Sena", "sena ai", " "})

	tests := map[string]bool{
		"sena help me":        true,
		"ok SENA?":            true,
		"ask sena_ai":         true,
		"senaai are you here": true,
		"arsenal won":         false,
		"nothing to see":      false,
	}
	for text, want := range tests {
		assert.Equal(t, want, intent.Matches(text), text)
	}

	assert.False(t, NewIntent(nil).Matches("sena"))
}
