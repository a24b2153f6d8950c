package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
)

// SemanticSearcher finds older turns similar to the current message.
// Only turns created before the recent window are considered.
type SemanticSearcher struct {
	store     core.ConversationStore
	embedder  core.Embedder
	window    time.Duration
	threshold float64
	maxOld    int
	metric    string
	now       func() time.Time
}

func NewSemanticSearcher(store core.ConversationStore, embedder core.Embedder, cfg config.RetrievalConfig) *SemanticSearcher {
	return &SemanticSearcher{
		store:     store,
		embedder:  embedder,
		window:    cfg.RecentWindow(),
		threshold: cfg.SimilarityThreshold,
		maxOld:    cfg.MaxOldMessages,
		metric:    cfg.DistanceMetric,
		now:       time.Now,
	}
}

func (s *SemanticSearcher) Fetch(ctx context.Context, userID, message, channelID string) ([]core.ContextItem, error) {
	return s.fetchBefore(ctx, userID, message, channelID, s.now().Add(-s.window))
}

func (s *SemanticSearcher) fetchBefore(ctx context.Context, userID, message, channelID string, before time.Time) ([]core.ContextItem, error) {
	if s.maxOld <= 0 {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to embed message: %w", err)
	}

	// over-fetch so the threshold filter still has enough candidates
	rows, err := s.store.QuerySimilar(ctx, core.SimilarQuery{
		UserID:    userID,
		ChannelID: channelID,
		Embedding: vec,
		Before:    before,
		Limit:     2 * s.maxOld,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search similar turns: %w", err)
	}

	var items []core.ContextItem
	for _, row := range rows {
		if len(items) >= s.maxOld {
			break
		}
		// turns stored without an embedding cannot be compared
		if row.Distance == nil {
			continue
		}

		score := similarity(s.metric, *row.Distance)
		if score < s.threshold {
			continue
		}

		items = append(items, core.ContextItem{
			Messages:        toMessages(row.Payload.Messages),
			Timestamp:       row.CreatedAt,
			Kind:            core.KindSemantic,
			SimilarityScore: &score,
		})
	}
	return items, nil
}

// similarity maps a store distance to a score in [-1, 1] where 1 is identical.
// L2 assumes unit-length embeddings, for which cos = 1 - d²/2.
func similarity(metric string, distance float64) float64 {
	var s float64
	switch metric {
	case config.DistanceL2:
		s = 1 - distance*distance/2
	default:
		s = 1 - distance
	}
	return max(-1, min(1, s))
}
