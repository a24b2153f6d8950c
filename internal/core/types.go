package core

import (
	"encoding/json"
	"time"
)

const (
	AppName      = "Recall"
	AppUserAgent = "Recall-Bot/0.1"
	AppVersion   = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message exchanged with the LLM.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnMessage is a message as stored inside a turn payload.
type TurnMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// TurnPayload is the JSON document persisted for every conversation turn.
type TurnPayload struct {
	Messages     []TurnMessage   `json:"messages"`
	MessageCount int             `json:"message_count"`
	Topic        string          `json:"topic"`
	Tags         []string        `json:"tags"`
	Source       string          `json:"source"`
	ContextID    string          `json:"context_id"`
	Metadata     json.RawMessage `json:"metadata"`
}

// ConversationTurn is one stored user message with an optional assistant reply.
type ConversationTurn struct {
	ID        int64
	UserID    string
	ChannelID string
	Payload   TurnPayload
	CreatedAt time.Time
	Embedding []float32
}

type ItemKind string

const (
	KindRecent   ItemKind = "recent"
	KindSemantic ItemKind = "semantic"
)

// ContextItem is a turn selected as prompt context for the current request.
type ContextItem struct {
	Messages        []Message
	Timestamp       time.Time
	Kind            ItemKind
	SimilarityScore *float64
	Priority        float64
}

// Similarity returns the similarity score or zero for recent items.
func (c ContextItem) Similarity() float64 {
	if c.SimilarityScore == nil {
		return 0
	}
	return *c.SimilarityScore
}
