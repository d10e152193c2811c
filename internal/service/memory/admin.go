package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/pkg/log"
	"github.com/sandevgo/tuskagent/pkg/metrics"
)

const auditDurableLimit = 1000

// Sweep purges durable records past retention and evicts cache entries
// idle longer than the idle TTL. An empty tenantID sweeps every tenant.
// Cache eviction runs even when the durable purge fails.
func (s *Store) Sweep(ctx context.Context, tenantID string) (core.SweepResult, error) {
	var result core.SweepResult
	logger := log.FromCtx(ctx)

	cutoff := s.now().Add(-s.cfg.Retention)
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	purged, purgeErr := s.repo.DeleteDurableOlderThan(opCtx, tenantID, cutoff)
	cancel()
	if purgeErr != nil {
		metrics.MemoryStoreErrors.WithLabelValues("sweep").Inc()
		purgeErr = fmt.Errorf("purge memory: %w: %w", core.ErrPersistence, purgeErr)
	}
	result.PurgedDurable = purged

	prefix := ""
	if tenantID != "" {
		prefix = core.TenantPrefix(tenantID)
	}
	idleBefore := s.now().Add(-s.cfg.IdleTTL)
	for _, key := range s.kv.ScanPrefix(prefix) {
		if s.evictIdle(key, idleBefore) {
			result.EvictedCached++
		}
	}
	s.pruneVersions()

	metrics.MemorySweep.WithLabelValues("durable").Add(float64(result.PurgedDurable))
	metrics.MemorySweep.WithLabelValues("cache").Add(float64(result.EvictedCached))
	logger.Info().
		Str("tenant_id", tenantID).
		Int64("purged_durable", result.PurgedDurable).
		Int("evicted_cached", result.EvictedCached).
		Msg("memory sweep finished")

	return result, purgeErr
}

func (s *Store) evictIdle(key string, idleBefore time.Time) bool {
	unlock := s.kv.Lock(key)
	defer unlock()

	last, ok := s.kv.LastAccess(key)
	if !ok || !last.Before(idleBefore) {
		return false
	}
	return s.kv.Delete(key)
}

// pruneVersions drops write counters of keys that are no longer cached.
func (s *Store) pruneVersions() {
	s.versions.Range(func(k, _ any) bool {
		key := k.(string)
		unlock := s.kv.Lock(key)
		if _, ok := s.kv.LastAccess(key); !ok {
			s.versions.Delete(key)
		}
		unlock()
		return true
	})
}

// WipeParticipant erases a participant's memory in both tiers across all of
// their conversations within the tenant. It returns the number of durable
// records removed.
func (s *Store) WipeParticipant(ctx context.Context, key core.TenantKey) (int, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	ctx = log.WithScope(ctx, key)

	// Bumped on both sides of the delete: a read that started before it
	// or loaded tier 2 while it ran sees a changed count and skips its
	// backfill.
	s.wipes.Add(1)

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	deleted, err := s.repo.DeleteDurableForParticipant(opCtx, key.TenantID, key.ParticipantID)
	cancel()
	s.wipes.Add(1)
	if err != nil {
		metrics.MemoryStoreErrors.WithLabelValues("wipe").Inc()
		return 0, fmt.Errorf("wipe memory: %w: %w", core.ErrPersistence, err)
	}

	evicted := 0
	for _, cacheKey := range s.kv.ScanPrefix(core.ParticipantPrefix(key.TenantID, key.ParticipantID)) {
		unlock := s.kv.Lock(cacheKey)
		s.version(cacheKey).Add(1)
		if s.kv.Delete(cacheKey) {
			evicted++
		}
		unlock()
	}

	log.FromCtx(ctx).Info().
		Int64("durable", deleted).
		Int("cached", evicted).
		Msg("participant memory wiped")
	return int(deleted), nil
}

// AuditIsolation reports cache keys that do not carry a tenant and durable
// records stored without one.
func (s *Store) AuditIsolation(ctx context.Context) (core.IsolationReport, error) {
	var report core.IsolationReport

	keys := s.kv.ScanPrefix("")
	report.CheckedCacheKeys = len(keys)
	for _, key := range keys {
		if _, ok := core.ParseCacheKey(key); !ok {
			report.CacheKeysWithoutTenant = append(report.CacheKeysWithoutTenant, key)
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	orphans, err := s.repo.FindOrphanedDurable(opCtx, auditDurableLimit)
	if err != nil {
		return report, fmt.Errorf("audit memory: %w: %w", core.ErrPersistence, err)
	}
	report.OrphanedDurableIDs = orphans

	if !report.Clean() {
		log.FromCtx(ctx).Warn().
			Int("cache_keys", len(report.CacheKeysWithoutTenant)).
			Int("durable_records", len(report.OrphanedDurableIDs)).
			Msg("isolation violations found")
	}
	return report, nil
}

// RepairIsolation assigns every tenantless record and cache entry to
// tenantID. Rekeyed cache entries never overwrite an existing entry.
func (s *Store) RepairIsolation(ctx context.Context, tenantID string) (core.RepairResult, error) {
	var result core.RepairResult
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return result, fmt.Errorf("repair without target tenant: %w", core.ErrIsolation)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	reassigned, err := s.repo.ReassignOrphanedDurable(opCtx, tenantID)
	cancel()
	if err != nil {
		err = fmt.Errorf("repair memory: %w: %w", core.ErrPersistence, err)
	}
	result.ReassignedDurable = reassigned

	for _, key := range s.kv.ScanPrefix("") {
		if _, ok := core.ParseCacheKey(key); ok {
			continue
		}
		target, ok := rekey(key, tenantID)
		if !ok {
			continue
		}
		if s.moveCached(key, target.CacheKey()) {
			result.RekeyedCache++
		}
	}

	log.FromCtx(ctx).Info().
		Str("tenant_id", tenantID).
		Int64("reassigned_durable", result.ReassignedDurable).
		Int("rekeyed_cache", result.RekeyedCache).
		Msg("isolation repair finished")
	return result, err
}

func (s *Store) moveCached(from, to string) bool {
	unlock := s.kv.Lock(from)
	turns, ok := s.kv.Get(from)
	s.kv.Delete(from)
	unlock()
	if !ok {
		return false
	}

	unlock = s.kv.Lock(to)
	defer unlock()
	s.version(to).Add(1)
	if _, exists := s.kv.Get(to); exists {
		// tier 2 already holds the history for the target
		return true
	}
	s.kv.Set(to, turns)
	return true
}

// rekey recovers participant and conversation ids from a key written
// without a tenant segment. Bare keys are taken as participant ids.
func rekey(key, tenantID string) (core.TenantKey, bool) {
	target := core.TenantKey{TenantID: tenantID}
	for _, part := range strings.Split(key, "|") {
		switch {
		case strings.HasPrefix(part, "p:"):
			target.ParticipantID = strings.TrimPrefix(part, "p:")
		case strings.HasPrefix(part, "c:"):
			if conv := strings.TrimPrefix(part, "c:"); conv != "*" {
				target.ConversationID = conv
			}
		}
	}
	if target.ParticipantID == "" && !strings.ContainsAny(key, "|:") {
		target.ParticipantID = key
	}
	if err := target.Validate(); err != nil {
		return target, false
	}
	return target, true
}
