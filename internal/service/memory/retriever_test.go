package memory

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// historyStore serves a fixed set of turns and applies the query filters
// the way the sqlite store does.
type historyStore struct {
	mockStore
	turns     []core.TurnRow
	distances map[string]float64
	recentQ   core.RecentQuery
	similarQ  core.SimilarQuery
}

func newHistoryStore(turns []core.TurnRow, distances map[string]float64) *historyStore {
	s := &historyStore{turns: turns, distances: distances}
	s.recentFunc = func(ctx context.Context, q core.RecentQuery) ([]core.TurnRow, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.recentQ = q
		var out []core.TurnRow
		for _, row := range s.turns {
			if !row.CreatedAt.Before(q.Since) {
				out = append(out, row)
			}
		}
		return out, nil
	}
	s.similarFunc = func(ctx context.Context, q core.SimilarQuery) ([]core.TurnRow, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.similarQ = q
		var out []core.TurnRow
		for _, row := range s.turns {
			if row.CreatedAt.Before(q.Before) {
				out = append(out, withDistance(row, s.distances[row.Payload.Messages[0].Content]))
			}
		}
		return out, nil
	}
	return s
}

func newTestRetriever(t *testing.T, store core.ConversationStore, embedder core.Embedder, now time.Time) *Retriever {
	t.Helper()
	r, err := NewRetriever(config.DefaultRetrievalConfig(), store, embedder, WithClock(fixedClock(now)))
	require.NoError(t, err)
	return r
}

func TestNewRetriever_Validation(t *testing.T) {
	cfg := config.DefaultRetrievalConfig()

	_, err := NewRetriever(cfg, nil, &mockEmbedder{})
	assert.ErrorIs(t, err, core.ErrNotInitialized)

	_, err = NewRetriever(cfg, &mockStore{}, nil)
	assert.ErrorIs(t, err, core.ErrNotInitialized)

	bad := cfg
	bad.DistanceMetric = "manhattan"
	_, err = NewRetriever(bad, &mockStore{}, &mockEmbedder{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrNotInitialized)
}

func TestRetriever_ZeroValue(t *testing.T) {
	var r Retriever
	_, err := r.GetContext(context.Background(), "u1", "hi", "")
	assert.ErrorIs(t, err, core.ErrNotInitialized)
}

func TestRetriever_GetContext_EndToEnd(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newHistoryStore([]core.TurnRow{
		turnRow("old plan", now.Add(-48*time.Hour)),
		turnRow("three minutes ago", now.Add(-3*time.Minute)),
		turnRow("one minute ago", now.Add(-1*time.Minute)),
	}, map[string]float64{"old plan": 0.4})
	embedder := &mockEmbedder{}

	r := newTestRetriever(t, store, embedder, now)
	items, err := r.GetContext(context.Background(), "u1", "remember what I said earlier?", "")
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, "old plan", items[0].Messages[0].Content)
	assert.Equal(t, core.KindSemantic, items[0].Kind)
	assert.InDelta(t, 0.6, items[0].Similarity(), 1e-9)
	assert.Equal(t, "three minutes ago", items[1].Messages[0].Content)
	assert.Equal(t, "one minute ago", items[2].Messages[0].Content)
	assert.Equal(t, 1, embedder.calls)

	// both paths share one cutoff
	assert.True(t, store.recentQ.Since.Equal(store.similarQ.Before))
	assert.True(t, store.recentQ.Since.Equal(now.Add(-15*time.Minute)))
}

func TestRetriever_GetContext_OldTurnBelowThreshold(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newHistoryStore([]core.TurnRow{
		turnRow("unrelated", now.Add(-48*time.Hour)),
		turnRow("one minute ago", now.Add(-1*time.Minute)),
	}, map[string]float64{"unrelated": 0.9})

	r := newTestRetriever(t, store, &mockEmbedder{}, now)
	items, err := r.GetContext(context.Background(), "u1", "remember that?", "")
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, core.KindRecent, items[0].Kind)
}

func TestRetriever_GetContext_SemanticSkipped(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []core.TurnRow{
		turnRow("a", now.Add(-5*time.Minute)),
		turnRow("b", now.Add(-4*time.Minute)),
		turnRow("c", now.Add(-3*time.Minute)),
	}

	tests := []struct {
		name    string
		message string
		opts    core.RetrievalOptions
	}{
		{"no trigger", "ok", core.RetrievalOptions{}},
		{"disabled by caller", "do you remember?", core.RetrievalOptions{DisableSemantic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &mockEmbedder{}
			r := newTestRetriever(t, newHistoryStore(rows, nil), embedder, now)

			items, err := r.GetContextWithOptions(context.Background(), "u1", tt.message, "c1", tt.opts)
			require.NoError(t, err)
			assert.Len(t, items, 3)
			assert.Zero(t, embedder.calls)
		})
	}
}

func TestRetriever_GetContext_NoOldMessagesAllowed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newHistoryStore([]core.TurnRow{
		turnRow("old plan", now.Add(-48*time.Hour)),
		turnRow("one minute ago", now.Add(-1*time.Minute)),
	}, map[string]float64{"old plan": 0.1})
	embedder := &mockEmbedder{}

	cfg := config.DefaultRetrievalConfig()
	cfg.MaxOldMessages = 0
	r, err := NewRetriever(cfg, store, embedder, WithClock(fixedClock(now)))
	require.NoError(t, err)

	disabledBefore := testutil.ToFloat64(semanticTriggerTotal.WithLabelValues(reasonDisabled))
	cueBefore := testutil.ToFloat64(semanticTriggerTotal.WithLabelValues(triggerBackwardCue))

	items, err := r.GetContext(context.Background(), "u1", "remember what I said earlier?", "")
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, core.KindRecent, items[0].Kind)
	assert.Zero(t, embedder.calls)
	assert.Equal(t, disabledBefore+1, testutil.ToFloat64(semanticTriggerTotal.WithLabelValues(reasonDisabled)))
	assert.Equal(t, cueBefore, testutil.ToFloat64(semanticTriggerTotal.WithLabelValues(triggerBackwardCue)))
}

func TestRetriever_GetContext_Errors(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("recent failure", func(t *testing.T) {
		store := &mockStore{recentFunc: func(context.Context, core.RecentQuery) ([]core.TurnRow, error) {
			return nil, core.ErrStoreUnavailable
		}}
		embedder := &mockEmbedder{}
		r := newTestRetriever(t, store, embedder, now)

		items, err := r.GetContext(context.Background(), "u1", "remember?", "")
		assert.ErrorIs(t, err, core.ErrStoreUnavailable)
		assert.Nil(t, items)
		assert.Zero(t, embedder.calls)
	})

	t.Run("semantic failure is not merged silently", func(t *testing.T) {
		store := newHistoryStore([]core.TurnRow{turnRow("recent", now.Add(-time.Minute))}, nil)
		embedder := &mockEmbedder{embedFunc: func(context.Context, string) ([]float32, error) {
			return nil, core.ErrEmbeddingUnavailable
		}}
		r := newTestRetriever(t, store, embedder, now)

		before := testutil.ToFloat64(retrievalErrors.WithLabelValues(stageSemantic))
		items, err := r.GetContext(context.Background(), "u1", "remember?", "")
		assert.ErrorIs(t, err, core.ErrEmbeddingUnavailable)
		assert.Nil(t, items)
		assert.Equal(t, before+1, testutil.ToFloat64(retrievalErrors.WithLabelValues(stageSemantic)))
	})

	t.Run("cancelled", func(t *testing.T) {
		r := newTestRetriever(t, newHistoryStore(nil, nil), &mockEmbedder{}, now)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := r.GetContext(ctx, "u1", "hi", "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRetriever_Metrics(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRetriever(t, newHistoryStore(nil, nil), &mockEmbedder{}, now)

	okBefore := testutil.ToFloat64(retrievalTotal.WithLabelValues(resultOK))
	cueBefore := testutil.ToFloat64(semanticTriggerTotal.WithLabelValues(triggerBackwardCue))

	_, err := r.GetContext(context.Background(), "u1", "we talked about this", "")
	require.NoError(t, err)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(retrievalTotal.WithLabelValues(resultOK)))
	assert.Equal(t, cueBefore+1, testutil.ToFloat64(semanticTriggerTotal.WithLabelValues(triggerBackwardCue)))
}

func TestRetriever_FormatContext(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRetriever(t, &mockStore{}, &mockEmbedder{}, now)
	items := []core.ContextItem{recentItem("hi", now)}

	assert.Equal(t, Format("next", items), r.FormatContext("next", items))
	assert.Empty(t, r.FormatContext("next", nil))
}
