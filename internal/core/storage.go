package core

import (
	"context"
	"time"
)

type ConversationStore interface {
	InsertTurn(ctx context.Context, userID, channelID string, payload TurnPayload, embedding []float32) (int64, error)
	QueryRecent(ctx context.Context, q RecentQuery) ([]TurnRow, error)
	QuerySimilar(ctx context.Context, q SimilarQuery) ([]TurnRow, error)
	ListMessages(ctx context.Context, q HistoryQuery) ([]TurnMessage, error)
}

// RecentQuery selects turns created at or after Since, oldest first.
type RecentQuery struct {
	UserID    string
	ChannelID string // optional
	Since     time.Time
	Limit     int
}

// SimilarQuery selects turns created strictly before Before, nearest first.
type SimilarQuery struct {
	UserID    string
	ChannelID string // optional
	Embedding []float32
	Before    time.Time
	Limit     int
}

// HistoryQuery selects the latest stored messages of a user, returned oldest first.
type HistoryQuery struct {
	UserID string
	Since  time.Time // zero means unbounded
	Until  time.Time // zero means unbounded
	Limit  int       // messages, zero means unbounded
}

// TurnRow is a stored turn as returned by the store queries.
// Distance is set by QuerySimilar only and is nil when the store could not compute it.
type TurnRow struct {
	Payload   TurnPayload
	CreatedAt time.Time
	Embedding []float32
	Distance  *float64
}
