package core

import (
	"context"
	"time"
)

// MemoryTurn is the canonical unit held in both memory tiers.
type MemoryTurn struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	IsFromCustomer bool      `json:"is_from_customer"`
	CreatedAt      time.Time `json:"created_at"`
	Intent         string    `json:"intent,omitempty"`
	Sentiment      string    `json:"sentiment,omitempty"`
}

// DurableRecord is one row of tier-2 history: the atomic unit written per
// exchange. Rows written before the turn-based shape carry Legacy instead of
// Pair; the normalizer is the only place that branches on Shape.
type DurableRecord struct {
	ID             string
	TenantID       string
	ConversationID string
	ParticipantID  string
	Shape          RecordShape
	Pair           *TurnPair
	Legacy         *LegacyTurnPair
	CreatedAt      time.Time
}

type RecordShape int

const (
	ShapeTurnPair RecordShape = iota
	ShapeLegacy
)

// TurnPair is the current durable shape: one customer message and the
// agent's reply.
type TurnPair struct {
	UserText  string
	AgentText string
	Intent    string
	Sentiment string
}

// LegacyTurnPair is the historical durable shape.
type LegacyTurnPair struct {
	UserMessage string    `json:"userMessage"`
	AIResponse  string    `json:"aiResponse"`
	Timestamp   time.Time `json:"timestamp"`
}

type DurableInsert struct {
	TenantID       string
	ConversationID string
	ParticipantID  string
	Pair           TurnPair
	CreatedAt      time.Time
}

type DurableQuery struct {
	TenantID       string
	ParticipantID  string
	ConversationID string
	Since          time.Time
	Limit          int
}

type SweepResult struct {
	PurgedDurable int64 `json:"purged_durable"`
	EvictedCached int   `json:"evicted_cached"`
}

type IsolationReport struct {
	CacheKeysWithoutTenant []string `json:"cache_keys_without_tenant"`
	OrphanedDurableIDs     []string `json:"orphaned_durable_ids"`
	CheckedCacheKeys       int      `json:"checked_cache_keys"`
}

func (r IsolationReport) Clean() bool {
	return len(r.CacheKeysWithoutTenant) == 0 && len(r.OrphanedDurableIDs) == 0
}

type RepairResult struct {
	ReassignedDurable int64 `json:"reassigned_durable"`
	RekeyedCache      int   `json:"rekeyed_cache"`
}

// MemoryRepository is the durable tier.
type MemoryRepository interface {
	FindRecentDurable(ctx context.Context, q DurableQuery) ([]DurableRecord, error)
	InsertDurable(ctx context.Context, rec DurableInsert) (string, error)
	DeleteDurableOlderThan(ctx context.Context, tenantID string, before time.Time) (int64, error)
	DeleteDurableForParticipant(ctx context.Context, tenantID, participantID string) (int64, error)
	FindOrphanedDurable(ctx context.Context, limit int) ([]string, error)
	ReassignOrphanedDurable(ctx context.Context, tenantID string) (int64, error)
}

// Memory is the conversational memory contract used by the agent layer.
type Memory interface {
	Append(ctx context.Context, key TenantKey, pair TurnPair) ([]MemoryTurn, error)
	GetRecent(ctx context.Context, key TenantKey, limit int) ([]MemoryTurn, error)
	PromptHistory(ctx context.Context, key TenantKey, limit, maxTokens int) ([]MemoryTurn, error)
	WipeParticipant(ctx context.Context, key TenantKey) (int, error)
}
