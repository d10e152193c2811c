package memory

import (
	"context"
	"testing"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Sweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	for _, tenant := range []string{"shop-a", "shop-b"} {
		_, err := f.repo.InsertDurable(ctx, core.DurableInsert{
			TenantID:      tenant,
			ParticipantID: "cust-1",
			Pair:          core.TurnPair{UserText: "old"},
			CreatedAt:     now.Add(-31 * 24 * time.Hour),
		})
		require.NoError(t, err)

		_, err = f.repo.InsertDurable(ctx, core.DurableInsert{
			TenantID:      tenant,
			ParticipantID: "cust-2",
			Pair:          core.TurnPair{UserText: "inside retention"},
			CreatedAt:     now.Add(-29 * 24 * time.Hour),
		})
		require.NoError(t, err)
	}

	survivors := func(tenant string) int {
		t.Helper()
		records, err := f.repo.FindRecentDurable(ctx, core.DurableQuery{
			TenantID:      tenant,
			ParticipantID: "cust-2",
			Since:         now.Add(-60 * 24 * time.Hour),
			Limit:         10,
		})
		require.NoError(t, err)
		return len(records)
	}

	idle := core.NewTenantKey("shop-a", "", "idle")
	active := core.NewTenantKey("shop-a", "", "active")
	other := core.NewTenantKey("shop-b", "", "idle")
	for _, key := range []core.TenantKey{idle, active, other} {
		_, err := f.store.GetRecent(ctx, key, 5)
		require.NoError(t, err)
	}

	f.clock.Advance(2 * time.Hour)
	_, err := f.store.GetRecent(ctx, active, 5)
	require.NoError(t, err)

	result, err := f.store.Sweep(ctx, "shop-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.PurgedDurable)
	assert.Equal(t, 1, result.EvictedCached)

	_, ok := f.kv.Get(idle.CacheKey())
	assert.False(t, ok)
	_, ok = f.kv.Get(active.CacheKey())
	assert.True(t, ok)
	_, ok = f.kv.Get(other.CacheKey())
	assert.True(t, ok, "other tenant must be untouched")
	assert.Equal(t, 1, survivors("shop-a"), "29-day record survives a scoped sweep")
	assert.Equal(t, 1, survivors("shop-b"))

	result, err = f.store.Sweep(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.PurgedDurable)
	assert.Equal(t, 1, survivors("shop-a"), "29-day record survives a global sweep")
	assert.Equal(t, 1, survivors("shop-b"))
}

func TestStore_WipeParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	target := core.NewTenantKey("shop-a", "conv-1", "cust-1")
	sibling := core.NewTenantKey("shop-a", "conv-2", "cust-1")
	lookalike := core.NewTenantKey("shop-a", "", "cust-10")
	otherTenant := core.NewTenantKey("shop-b", "", "cust-1")

	for _, key := range []core.TenantKey{target, sibling, lookalike, otherTenant} {
		_, err := f.store.Append(ctx, key, core.TurnPair{UserText: "hello", AgentText: "hi"})
		require.NoError(t, err)
		_, err = f.store.GetRecent(ctx, key, 5)
		require.NoError(t, err)
	}

	deleted, err := f.store.WipeParticipant(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	for _, key := range []core.TenantKey{target, sibling} {
		got, err := f.store.GetRecent(ctx, key, 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	for _, key := range []core.TenantKey{lookalike, otherTenant} {
		got, err := f.store.GetRecent(ctx, key, 5)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	}
}

func TestStore_AuditAndRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clean, err := f.store.AuditIsolation(ctx)
	require.NoError(t, err)
	assert.True(t, clean.Clean())

	_, err = f.repo.InsertLegacy(ctx, "", "", "cust-9", core.LegacyTurnPair{
		UserMessage: "orphan",
		AIResponse:  "reply",
		Timestamp:   f.clock.Now(),
	})
	require.NoError(t, err)
	f.kv.Set("cust-9", []core.MemoryTurn{{ID: "x-u", Content: "orphan", IsFromCustomer: true}})
	f.kv.Set("p:cust-7|c:conv-3", []core.MemoryTurn{{ID: "y-u", Content: "also orphan", IsFromCustomer: true}})

	report, err := f.store.AuditIsolation(ctx)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.ElementsMatch(t, []string{"cust-9", "p:cust-7|c:conv-3"}, report.CacheKeysWithoutTenant)
	assert.Len(t, report.OrphanedDurableIDs, 1)

	_, err = f.store.RepairIsolation(ctx, " ")
	assert.ErrorIs(t, err, core.ErrIsolation)

	repaired, err := f.store.RepairIsolation(ctx, "shop-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), repaired.ReassignedDurable)
	assert.Equal(t, 2, repaired.RekeyedCache)

	_, ok := f.kv.Get(core.NewTenantKey("shop-a", "conv-3", "cust-7").CacheKey())
	assert.True(t, ok)

	after, err := f.store.AuditIsolation(ctx)
	require.NoError(t, err)
	assert.True(t, after.Clean())
}

func TestRekey(t *testing.T) {
	tests := []struct {
		key  string
		want core.TenantKey
		ok   bool
	}{
		{key: "cust-1", want: core.TenantKey{TenantID: "shop", ParticipantID: "cust-1"}, ok: true},
		{key: "p:cust-1|c:*", want: core.TenantKey{TenantID: "shop", ParticipantID: "cust-1"}, ok: true},
		{key: "t:|p:cust-1|c:conv", want: core.TenantKey{TenantID: "shop", ParticipantID: "cust-1", ConversationID: "conv"}, ok: true},
		{key: "c:conv", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := rekey(tt.key, "shop")
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
