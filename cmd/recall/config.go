package main

import (
	"fmt"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/pkg/env"
	"github.com/sandevgo/recall/pkg/log"
	"github.com/spf13/cobra"
)

var showSecrets bool

var configCmd = &cobra.Command{
	Use:          "config",
	Short:        "Print the effective configuration as .env",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("failed to load .env file")
		}

		appCfg := config.NewAppConfig(ctx)
		sections := []struct {
			title string
			cfg   any
		}{
			{"App", appCfg},
			{"Retrieval", config.NewRetrievalConfig(ctx)},
			{"Embedding", config.NewEmbeddingConfig(ctx)},
			{"LLM", config.NewLLMConfig(ctx)},
			{"Metrics", config.NewMetricsConfig(ctx)},
		}
		if appCfg.IsTelegramSelected() {
			sections = append(sections, struct {
				title string
				cfg   any
			}{"Telegram", config.NewTelegramConfig(ctx)})
		}

		out := cmd.OutOrStdout()
		for _, s := range sections {
			data, err := env.MarshalEnv(s.cfg, !showSecrets)
			if err != nil {
				return fmt.Errorf("failed to render %s config: %w", s.title, err)
			}
			fmt.Fprintf(out, "# %s\n%s\n", s.title, data)
		}
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print API keys and tokens unmasked")
	rootCmd.AddCommand(configCmd)
}
