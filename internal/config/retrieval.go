package config

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/recall/pkg/log"
)

const (
	DistanceCosine = "cosine"
	DistanceL2     = "l2"
)

// RetrievalConfig holds the context selection limits. It is read once at startup.
type RetrievalConfig struct {
	MaxContextMessages  int     `env:"RECALL_MAX_CONTEXT_MESSAGES" envDefault:"15"`
	RecentWindowMinutes int     `env:"RECALL_RECENT_WINDOW_MINUTES" envDefault:"15"`
	SimilarityThreshold float64 `env:"RECALL_SIMILARITY_THRESHOLD" envDefault:"0.3"`
	MaxOldMessages      int     `env:"RECALL_MAX_OLD_MESSAGES" envDefault:"5"`
	RecentLimit         int     `env:"RECALL_RECENT_LIMIT" envDefault:"10"`
	// DistanceMetric must match the metric the store ranks by.
	DistanceMetric string `env:"RECALL_DISTANCE_METRIC" envDefault:"cosine"`
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		MaxContextMessages:  15,
		RecentWindowMinutes: 15,
		SimilarityThreshold: 0.3,
		MaxOldMessages:      5,
		RecentLimit:         10,
		DistanceMetric:      DistanceCosine,
	}
}

func NewRetrievalConfig(ctx context.Context) *RetrievalConfig {
	c := &RetrievalConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Retrieval config")
	}
	if err := c.Validate(); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("invalid Retrieval config")
	}
	return c
}

func (c RetrievalConfig) Validate() error {
	switch {
	case c.MaxContextMessages <= 0:
		return fmt.Errorf("max context messages must be positive, got %d", c.MaxContextMessages)
	case c.RecentWindowMinutes <= 0:
		return fmt.Errorf("recent window must be positive, got %d", c.RecentWindowMinutes)
	case c.MaxOldMessages < 0:
		return fmt.Errorf("max old messages must not be negative, got %d", c.MaxOldMessages)
	case c.RecentLimit <= 0:
		return fmt.Errorf("recent limit must be positive, got %d", c.RecentLimit)
	case math.IsNaN(c.SimilarityThreshold) || c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1:
		return fmt.Errorf("similarity threshold must be within [-1, 1], got %v", c.SimilarityThreshold)
	}

	switch c.DistanceMetric {
	case DistanceCosine, DistanceL2:
	default:
		return fmt.Errorf("unknown distance metric: %s", c.DistanceMetric)
	}
	return nil
}

func (c RetrievalConfig) RecentWindow() time.Duration {
	return time.Duration(c.RecentWindowMinutes) * time.Minute
}
