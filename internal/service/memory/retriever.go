package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// Retriever assembles the prompt context for one incoming message.
// It holds no per-request state and is safe for concurrent use.
type Retriever struct {
	recent   *RecentFetcher
	semantic *SemanticSearcher
	merger   *Merger
	window   time.Duration
	now      func() time.Time
}

type Option func(*Retriever)

// WithClock replaces time.Now for every stage of the pipeline.
func WithClock(now func() time.Time) Option {
	return func(r *Retriever) {
		r.now = now
		r.recent.now = now
		r.semantic.now = now
		r.merger.now = now
	}
}

func NewRetriever(cfg config.RetrievalConfig, store core.ConversationStore, embedder core.Embedder, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("conversation store: %w", core.ErrNotInitialized)
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder: %w", core.ErrNotInitialized)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retrieval config: %w", err)
	}

	r := &Retriever{
		recent:   NewRecentFetcher(store, cfg.RecentWindow(), cfg.RecentLimit),
		semantic: NewSemanticSearcher(store, embedder, cfg),
		merger:   NewMerger(cfg.MaxContextMessages),
		window:   cfg.RecentWindow(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Retriever) GetContext(ctx context.Context, userID, message, channelID string) ([]core.ContextItem, error) {
	return r.GetContextWithOptions(ctx, userID, message, channelID, core.RetrievalOptions{})
}

func (r *Retriever) GetContextWithOptions(
	ctx context.Context,
	userID, message, channelID string,
	opts core.RetrievalOptions,
) ([]core.ContextItem, error) {
	if r == nil || r.recent == nil {
		return nil, core.ErrNotInitialized
	}

	logger := log.FromCtx(ctx)

	// one cutoff for both paths so a turn is either recent or old, never both
	now := r.now()
	cutoff := now.Add(-r.window)

	recent, err := r.recent.fetchSince(ctx, userID, channelID, cutoff)
	if err != nil {
		retrievalErrors.WithLabelValues(stageRecent).Inc()
		retrievalTotal.WithLabelValues(resultError).Inc()
		return nil, err
	}

	reason, needOld := semanticTrigger(message, recent)
	switch {
	case !needOld:
		reason = reasonNone
	case opts.DisableSemantic, r.semantic.maxOld <= 0:
		needOld = false
		reason = reasonDisabled
	}
	semanticTriggerTotal.WithLabelValues(reason).Inc()

	var semantic []core.ContextItem
	if needOld {
		semantic, err = r.semantic.fetchBefore(ctx, userID, message, channelID, cutoff)
		if err != nil {
			retrievalErrors.WithLabelValues(stageSemantic).Inc()
			retrievalTotal.WithLabelValues(resultError).Inc()
			return nil, err
		}
	}

	merged := r.merger.mergeAt(now, recent, semantic)

	logger.Debug().
		Int("recent", len(recent)).
		Int("semantic", len(semantic)).
		Int("merged", len(merged)).
		Str("trigger", reason).
		Msg("context retrieved")

	retrievalTotal.WithLabelValues(resultOK).Inc()
	contextItems.Observe(float64(len(merged)))

	return merged, nil
}

func (r *Retriever) FormatContext(message string, items []core.ContextItem) string {
	return Format(message, items)
}
