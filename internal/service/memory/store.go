package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/service/cache"
	"github.com/sandevgo/tuskagent/pkg/log"
	"github.com/sandevgo/tuskagent/pkg/metrics"
	"github.com/sandevgo/tuskagent/pkg/retry"
	"github.com/sandevgo/tuskagent/pkg/tokens"
)

const (
	DefaultRetention    = 30 * 24 * time.Hour
	DefaultIdleTTL      = time.Hour
	DefaultContentLimit = core.DefaultContentLimit
	DefaultHistoryLimit = 10
	DefaultStoreTimeout = 5 * time.Second
	DefaultFillTurns    = 50

	// Per-message framing overhead in the prompt token budget.
	turnTokenOverhead = 4
)

type Config struct {
	Retention    time.Duration
	IdleTTL      time.Duration
	ContentLimit int
	HistoryLimit int
	StoreTimeout time.Duration
	// FillTurns is how many turns a cache miss loads from the durable tier.
	FillTurns int
}

func DefaultConfig() Config {
	return Config{
		Retention:    DefaultRetention,
		IdleTTL:      DefaultIdleTTL,
		ContentLimit: DefaultContentLimit,
		HistoryLimit: DefaultHistoryLimit,
		StoreTimeout: DefaultStoreTimeout,
		FillTurns:    DefaultFillTurns,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = d.IdleTTL
	}
	if c.ContentLimit <= 0 {
		c.ContentLimit = d.ContentLimit
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	if c.FillTurns <= 0 {
		c.FillTurns = d.FillTurns
	}
	return c
}

// Store is the two-tier conversational memory. Tier 1 is the in-process
// cache, tier 2 the durable repository. Every operation is scoped by a
// validated core.TenantKey.
type Store struct {
	repo    core.MemoryRepository
	kv      cache.KV
	cfg     Config
	retrier *retry.Retrier
	now     func() time.Time

	// versions counts writes per cache key so a slow backfill cannot
	// overwrite turns appended while it was reading tier 2.
	versions sync.Map
	// wipes counts participant erasures. A backfill that read tier 2
	// across any wipe is not cached, so erased turns cannot come back
	// whether or not their key was cached when the wipe ran.
	wipes atomic.Uint64
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithRetrier(r *retry.Retrier) Option {
	return func(s *Store) {
		s.retrier = r
	}
}

func NewStore(repo core.MemoryRepository, kv cache.KV, cfg Config, opts ...Option) *Store {
	s := &Store{
		repo:    repo,
		kv:      kv,
		cfg:     cfg.withDefaults(),
		retrier: retry.NewDefaultRetrier(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ core.Memory = (*Store)(nil)

// Append persists one exchange durably and then adds its turns to tier 1.
// The durable write happens without holding the key lock.
func (s *Store) Append(ctx context.Context, key core.TenantKey, pair core.TurnPair) ([]core.MemoryTurn, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(pair.UserText) == "" && strings.TrimSpace(pair.AgentText) == "" {
		return nil, fmt.Errorf("empty exchange: %w", core.ErrValidation)
	}

	ctx = log.WithScope(ctx, key)
	at := s.now().UTC()

	var id string
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
		defer cancel()

		var err error
		id, err = s.repo.InsertDurable(opCtx, core.DurableInsert{
			TenantID:       key.TenantID,
			ConversationID: key.ConversationID,
			ParticipantID:  key.ParticipantID,
			Pair:           pair,
			CreatedAt:      at,
		})
		if errors.Is(err, core.ErrIsolation) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		metrics.MemoryStoreErrors.WithLabelValues("append").Inc()
		return nil, fmt.Errorf("append memory: %w: %w", core.ErrPersistence, err)
	}

	turns := pairTurns(id, pair, at, s.cfg.ContentLimit)

	keys := []string{key.CacheKey()}
	if key.SessionIsolated() {
		global := key
		global.ConversationID = ""
		keys = append(keys, global.CacheKey())
	}
	for _, k := range keys {
		s.appendCached(k, turns)
	}

	log.FromCtx(ctx).Debug().Str("record_id", id).Int("turns", len(turns)).Msg("memory appended")
	return turns, nil
}

// appendCached extends a cached entry. A missing entry is left missing;
// the next read loads it from tier 2, which already holds the new record.
// Turns a concurrent backfill already loaded from tier 2 are not added
// twice.
func (s *Store) appendCached(cacheKey string, turns []core.MemoryTurn) {
	unlock := s.kv.Lock(cacheKey)
	defer unlock()

	s.version(cacheKey).Add(1)
	cached, ok := s.kv.Get(cacheKey)
	if !ok {
		return
	}

	present := make(map[string]struct{}, len(cached))
	for _, t := range cached {
		present[t.ID] = struct{}{}
	}
	for _, t := range turns {
		if _, dup := present[t.ID]; !dup {
			cached = append(cached, t)
		}
	}
	s.kv.Set(cacheKey, cached)
}

// GetRecent returns up to limit turns in chronological order. A tier-1
// miss is filled from tier 2 within the retention window.
func (s *Store) GetRecent(ctx context.Context, key core.TenantKey, limit int) ([]core.MemoryTurn, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}

	ctx = log.WithScope(ctx, key)
	cacheKey := key.CacheKey()

	unlock := s.kv.Lock(cacheKey)
	cached, ok := s.kv.Get(cacheKey)
	seen := s.version(cacheKey).Load()
	seenWipes := s.wipes.Load()
	unlock()

	if ok {
		metrics.MemoryCacheLookups.WithLabelValues("hit").Inc()
		return tail(cached, limit), nil
	}
	metrics.MemoryCacheLookups.WithLabelValues("miss").Inc()

	turns, err := s.loadDurable(ctx, key, max(limit, s.cfg.FillTurns))
	if err != nil {
		return nil, err
	}

	unlock = s.kv.Lock(cacheKey)
	defer unlock()

	if current, ok := s.kv.Get(cacheKey); ok {
		return tail(current, limit), nil
	}
	if s.version(cacheKey).Load() == seen && s.wipes.Load() == seenWipes {
		s.kv.Set(cacheKey, turns)
	}
	return tail(turns, limit), nil
}

func (s *Store) loadDurable(ctx context.Context, key core.TenantKey, turnLimit int) ([]core.MemoryTurn, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	records, err := s.repo.FindRecentDurable(opCtx, core.DurableQuery{
		TenantID:       key.TenantID,
		ParticipantID:  key.ParticipantID,
		ConversationID: key.ConversationID,
		Since:          s.now().Add(-s.cfg.Retention),
		Limit:          (turnLimit + 1) / 2,
	})
	if err != nil {
		metrics.MemoryStoreErrors.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("load memory: %w: %w", core.ErrPersistence, err)
	}

	reverse(records)
	turns, legacy := normalizeRecords(records, s.cfg.ContentLimit)
	if legacy > 0 {
		metrics.MemoryLegacyMigrated.Add(float64(legacy))
		log.FromCtx(ctx).Info().Int("records", legacy).Msg("migrated legacy memory records")
	}
	return turns, nil
}

// PromptHistory returns the most recent turns that fit within maxTokens,
// still in chronological order. The newest turn always survives, cut to
// the budget if needed.
func (s *Store) PromptHistory(ctx context.Context, key core.TenantKey, limit, maxTokens int) ([]core.MemoryTurn, error) {
	turns, err := s.GetRecent(ctx, key, limit)
	if err != nil || maxTokens <= 0 {
		return turns, err
	}

	budget := maxTokens
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := tokens.Count(turns[i].Content) + turnTokenOverhead
		if cost > budget {
			if i == len(turns)-1 {
				turns[i].Content = tokens.Truncate(turns[i].Content, max(budget-turnTokenOverhead, 1))
				start = i
			}
			break
		}
		budget -= cost
		start = i
	}
	return turns[start:], nil
}

func (s *Store) version(cacheKey string) *atomic.Uint64 {
	v, _ := s.versions.LoadOrStore(cacheKey, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}
