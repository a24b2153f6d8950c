package memory

import (
	"context"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

type mockStore struct {
	insertFunc  func(ctx context.Context, userID, channelID string, payload core.TurnPayload, embedding []float32) (int64, error)
	recentFunc  func(ctx context.Context, q core.RecentQuery) ([]core.TurnRow, error)
	similarFunc func(ctx context.Context, q core.SimilarQuery) ([]core.TurnRow, error)
	listFunc    func(ctx context.Context, q core.HistoryQuery) ([]core.TurnMessage, error)
}

func (m *mockStore) InsertTurn(ctx context.Context, userID, channelID string, payload core.TurnPayload, embedding []float32) (int64, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, userID, channelID, payload, embedding)
	}
	return 1, nil
}

func (m *mockStore) QueryRecent(ctx context.Context, q core.RecentQuery) ([]core.TurnRow, error) {
	if m.recentFunc != nil {
		return m.recentFunc(ctx, q)
	}
	return nil, nil
}

func (m *mockStore) QuerySimilar(ctx context.Context, q core.SimilarQuery) ([]core.TurnRow, error) {
	if m.similarFunc != nil {
		return m.similarFunc(ctx, q)
	}
	return nil, nil
}

func (m *mockStore) ListMessages(ctx context.Context, q core.HistoryQuery) ([]core.TurnMessage, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, q)
	}
	return nil, nil
}

type mockEmbedder struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
	calls     int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	return []float32{1, 0, 0}, nil
}

func turnRow(content string, createdAt time.Time) core.TurnRow {
	return core.TurnRow{
		Payload: core.TurnPayload{
			Messages: []core.TurnMessage{
				{Role: core.RoleUser, Content: content},
			},
			MessageCount: 1,
		},
		CreatedAt: createdAt,
	}
}

func withDistance(row core.TurnRow, d float64) core.TurnRow {
	row.Distance = &d
	return row
}

func recentItem(content string, ts time.Time) core.ContextItem {
	return core.ContextItem{
		Messages:  []core.Message{{Role: core.RoleUser, Content: content}},
		Timestamp: ts,
		Kind:      core.KindRecent,
	}
}

func semanticItem(content string, ts time.Time, score float64) core.ContextItem {
	return core.ContextItem{
		Messages:        []core.Message{{Role: core.RoleUser, Content: content}},
		Timestamp:       ts,
		Kind:            core.KindSemantic,
		SimilarityScore: &score,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
