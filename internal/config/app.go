package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/pkg/log"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type AppConfig struct {
	RuntimePath string `env:"TUSKAGENT_RUNTIME_PATH" envDefault:".tuskagent"`

	// Tenant served by this process.
	TenantID    string `env:"TENANT_ID"`
	StoreName   string `env:"STORE_NAME"`
	Language    string `env:"AGENT_LANGUAGE" envDefault:"Egyptian Arabic"`
	Personality string `env:"AGENT_PERSONALITY"`

	// Storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	DatabaseURL   string `env:"DATABASE_URL"`

	// Memory
	MemoryRetention     time.Duration `env:"MEMORY_RETENTION" envDefault:"720h"`
	MemoryIdleTTL       time.Duration `env:"MEMORY_IDLE_TTL" envDefault:"1h"`
	MemorySweepInterval time.Duration `env:"MEMORY_SWEEP_INTERVAL" envDefault:"15m"`
	MemoryContentLimit  int           `env:"MEMORY_CONTENT_LIMIT" envDefault:"2000"`
	MemoryHistoryLimit  int           `env:"MEMORY_HISTORY_LIMIT" envDefault:"10"`
	PromptHistoryTokens int           `env:"PROMPT_HISTORY_TOKENS" envDefault:"1500"`

	// Timeouts
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"45s"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	DedupWindow time.Duration `env:"DEDUP_WINDOW" envDefault:"2m"`
	MetricsAddr string        `env:"METRICS_ADDR" envDefault:":9464"`

	// Transport Flags
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`
	EnableCLI      bool `env:"ENABLE_CLI" envDefault:"true"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c, err := ParseAppConfig()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func ParseAppConfig() (*AppConfig, error) {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	c.RuntimePath = resolveRuntimePath(c.RuntimePath)
	return c, nil
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "tuskagent.db")
}

func (c AppConfig) GetHistoryPath() string {
	return filepath.Join(c.RuntimePath, "input_history")
}

func (c AppConfig) IsTelegramSelected() bool {
	return c.EnableTelegram
}

func (c AppConfig) IsPostgres() bool {
	return c.StorageDriver == StoragePostgres
}

// Tenant builds the profile handed to the order engine.
func (c AppConfig) Tenant() core.TenantProfile {
	name := c.StoreName
	if name == "" {
		name = c.TenantID
	}
	return core.TenantProfile{
		TenantID:    c.TenantID,
		StoreName:   name,
		Personality: c.Personality,
		Language:    c.Language,
	}
}
