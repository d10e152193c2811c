package main

import (
	"context"
	"fmt"

	"github.com/sandevgo/tuskagent/internal/config"
	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/providers/llm"
	"github.com/sandevgo/tuskagent/internal/service/agent"
	"github.com/sandevgo/tuskagent/internal/service/cache"
	"github.com/sandevgo/tuskagent/internal/service/command"
	"github.com/sandevgo/tuskagent/internal/service/memory"
	"github.com/sandevgo/tuskagent/internal/service/order"
	"github.com/sandevgo/tuskagent/internal/service/rag"
	"github.com/sandevgo/tuskagent/internal/storage/postgres"
	"github.com/sandevgo/tuskagent/internal/storage/sqlite"
	"github.com/sandevgo/tuskagent/internal/transport/cli"
	"github.com/sandevgo/tuskagent/internal/transport/telegram"
	"github.com/sandevgo/tuskagent/pkg/log"
	"github.com/sandevgo/tuskagent/pkg/metrics"
	"github.com/sandevgo/tuskagent/pkg/srv"
)

// repositories bundles the durable collaborators of one storage driver.
type repositories struct {
	memory    core.MemoryRepository
	orders    core.OrderRepository
	shipping  core.ShippingZones
	knowledge core.KnowledgeRepository
	close     func() error
}

// NewServices wires the whole agent for the start command.
func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// 1. Configuration
	appCfg := loadAppConfig(ctx)
	if appCfg.TenantID == "" {
		logger.Fatal().Msg("TENANT_ID is required")
	}
	llmCfg := config.NewLLMConfig(ctx)

	// 2. Storage
	repos, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup("storage", repos.close))

	// 3. Memory
	store, sweeper := initMemory(appCfg, repos)
	services = append(services, sweeper)

	// 4. Language model
	model, err := llm.NewLanguageModel(ctx, llmCfg, llm.WithSystemPrompt(order.SystemPrompt))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	// 5. Agent
	ag := newAgent(appCfg, store, model, repos)

	// 6. Metrics
	if appCfg.MetricsAddr != "" {
		services = append(services, metrics.NewServer(appCfg.MetricsAddr))
	}

	// 7. Transports
	transports, err := initTransports(ctx, appCfg, ag)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transports")
	}
	services = append(services, transports...)

	return services
}

func loadAppConfig(ctx context.Context) *config.AppConfig {
	if err := config.LoadEnv(ctx, config.GetRuntimePath()); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to init env")
	}
	return config.NewAppConfig(ctx)
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*repositories, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
		if err != nil {
			return nil, err
		}
		return &repositories{
			memory:    sqlite.NewMemoryRepo(db),
			orders:    sqlite.NewOrdersRepo(db),
			shipping:  sqlite.NewShippingRepo(db),
			knowledge: sqlite.NewKnowledgeRepo(db),
			close:     db.Close,
		}, nil
	case config.StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
		store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &repositories{
			memory:    store,
			orders:    store,
			shipping:  store,
			knowledge: store,
			close:     store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.StorageDriver)
	}
}

func initMemory(cfg *config.AppConfig, repos *repositories) (*memory.Store, *memory.SweepWorker) {
	store := memory.NewStore(repos.memory, cache.NewStriped(), memory.Config{
		Retention:    cfg.MemoryRetention,
		IdleTTL:      cfg.MemoryIdleTTL,
		ContentLimit: cfg.MemoryContentLimit,
		HistoryLimit: cfg.MemoryHistoryLimit,
		StoreTimeout: cfg.StoreTimeout,
	})
	return store, memory.NewSweepWorker(store, cfg.MemorySweepInterval)
}

func newAgent(cfg *config.AppConfig, store *memory.Store, model core.LanguageModel, repos *repositories) *agent.Agent {
	engineCfg := order.DefaultConfig()
	engineCfg.LLMTimeout = cfg.LLMTimeout
	engineCfg.StoreTimeout = cfg.StoreTimeout
	engineCfg.HistoryTurns = cfg.MemoryHistoryLimit
	engineCfg.HistoryTokens = cfg.PromptHistoryTokens
	engineCfg.ContentLimit = cfg.MemoryContentLimit

	engine := order.NewEngine(model, store, repos.orders, repos.shipping, engineCfg)

	return agent.NewAgent(
		store,
		engine,
		repos.knowledge,
		rag.NewResolver(rag.DefaultMaxItemTokens),
		command.New(command.NewCommands(store)),
		agent.NewProcessedGuard(cfg.DedupWindow),
		cfg.Tenant(),
		cfg.StoreTimeout,
	)
}

func initTransports(ctx context.Context, cfg *config.AppConfig, ag *agent.Agent) ([]srv.Service, error) {
	var services []srv.Service

	if cfg.IsTelegramSelected() {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, ag)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	if cfg.EnableCLI {
		rl, err := cli.NewReadLine(ag, cfg)
		if err != nil {
			return nil, err
		}
		services = append(services, rl)
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no transport enabled: set ENABLE_TELEGRAM or ENABLE_CLI")
	}
	return services, nil
}
