package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

// RecentFetcher loads the turns of the short-term window, oldest first.
type RecentFetcher struct {
	store  core.ConversationStore
	window time.Duration
	limit  int
	now    func() time.Time
}

func NewRecentFetcher(store core.ConversationStore, window time.Duration, limit int) *RecentFetcher {
	return &RecentFetcher{
		store:  store,
		window: window,
		limit:  limit,
		now:    time.Now,
	}
}

func (f *RecentFetcher) Fetch(ctx context.Context, userID, channelID string) ([]core.ContextItem, error) {
	return f.fetchSince(ctx, userID, channelID, f.now().Add(-f.window))
}

func (f *RecentFetcher) fetchSince(ctx context.Context, userID, channelID string, since time.Time) ([]core.ContextItem, error) {
	rows, err := f.store.QueryRecent(ctx, core.RecentQuery{
		UserID:    userID,
		ChannelID: channelID,
		Since:     since,
		Limit:     f.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent turns: %w", err)
	}

	items := make([]core.ContextItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, core.ContextItem{
			Messages:  toMessages(row.Payload.Messages),
			Timestamp: row.CreatedAt,
			Kind:      core.KindRecent,
		})
	}
	return items, nil
}

func toMessages(in []core.TurnMessage) []core.Message {
	out := make([]core.Message, 0, len(in))
	for _, m := range in {
		out = append(out, core.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
