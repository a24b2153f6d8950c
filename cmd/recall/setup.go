package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/providers/embedding"
	"github.com/sandevgo/recall/internal/providers/llm"
	"github.com/sandevgo/recall/internal/service/chat"
	"github.com/sandevgo/recall/internal/service/memory"
	"github.com/sandevgo/recall/internal/storage/sqlite"
	"github.com/sandevgo/recall/internal/transport/telegram"
	"github.com/sandevgo/recall/pkg/log"
	"github.com/sandevgo/recall/pkg/srv"
)

// engine holds the components shared by the start and context commands.
type engine struct {
	appCfg    *config.AppConfig
	db        *sql.DB
	store     *sqlite.ConversationsRepo
	retriever *memory.Retriever
	recorder  *memory.Recorder
}

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	eng := initEngine(ctx)
	services = append(services, srv.NewCleanup(eng.db.Close))

	// Chat model
	aiProvider, err := llm.NewProvider(ctx, config.NewLLMConfig(ctx))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	handler := chat.NewHandler(
		eng.retriever,
		eng.recorder,
		aiProvider,
		chat.NewSysPrompt(eng.appCfg.GetSystemPromptPath()),
		chat.NewIntent(eng.appCfg.BotNames),
	)

	// Metrics endpoint
	if metricsCfg := config.NewMetricsConfig(ctx); metricsCfg.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		services = append(services, srv.NewHTTP(metricsCfg.Addr, mux))
	}

	// Transports
	transports, err := initTransports(ctx, eng.appCfg, handler, eng.store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transports")
	}
	if len(transports) == 0 {
		logger.Warn().Msg("no transport enabled, set ENABLE_TELEGRAM=true to receive messages")
	}
	services = append(services, transports...)

	return services
}

// initEngine loads the configuration and wires storage, embeddings and the
// retrieval engine. Any failure here is fatal.
func initEngine(ctx context.Context) *engine {
	logger := log.FromCtx(ctx)

	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	retrievalCfg := config.NewRetrievalConfig(ctx)
	embeddingCfg := config.NewEmbeddingConfig(ctx)

	// 2. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	store, err := sqlite.NewConversationsRepo(db, retrievalCfg.DistanceMetric)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize conversation store")
	}

	// 3. Embeddings
	embedder := embedding.NewOpenAI(embeddingCfg)

	// 4. Retrieval engine
	retriever, err := memory.NewRetriever(*retrievalCfg, store, embedder)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize context retriever")
	}
	recorder, err := memory.NewRecorder(store, embedder, appCfg.Platform)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize turn recorder")
	}

	logger.Info().
		Str("db", appCfg.GetDatabasePath()).
		Str("metric", retrievalCfg.DistanceMetric).
		Str("embedding_model", embeddingCfg.Model).
		Msg("retrieval engine ready")

	return &engine{
		appCfg:    appCfg,
		db:        db,
		store:     store,
		retriever: retriever,
		recorder:  recorder,
	}
}

func initTransports(
	ctx context.Context,
	cfg *config.AppConfig,
	handler *chat.Handler,
	history telegram.HistoryLister,
) ([]srv.Service, error) {
	var services []srv.Service

	// Telegram Bot
	if cfg.IsTelegramSelected() {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, handler, history)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
