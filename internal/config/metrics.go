package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/recall/pkg/log"
)

type MetricsConfig struct {
	// Addr of the Prometheus endpoint, e.g. ":9090". Empty disables it.
	Addr string `env:"RECALL_METRICS_ADDR"`
}

func NewMetricsConfig(ctx context.Context) *MetricsConfig {
	c := &MetricsConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Metrics config")
	}
	return c
}
