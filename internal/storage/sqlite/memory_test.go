package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insert(t *testing.T, repo *MemoryRepo, tenant, conv, participant, user string, at time.Time) string {
	t.Helper()
	id, err := repo.InsertDurable(context.Background(), core.DurableInsert{
		TenantID:       tenant,
		ConversationID: conv,
		ParticipantID:  participant,
		Pair:           core.TurnPair{UserText: user, AgentText: "reply to " + user, Intent: "order"},
		CreatedAt:      at,
	})
	require.NoError(t, err)
	return id
}

func TestMemoryRepo_FindRecentDurable(t *testing.T) {
	repo := NewMemoryRepo(newTestDB(t))
	now := time.Now()

	insert(t, repo, "acme", "c1", "p1", "first", now.Add(-3*time.Minute))
	insert(t, repo, "acme", "c1", "p1", "second", now.Add(-2*time.Minute))
	insert(t, repo, "acme", "c2", "p1", "other conversation", now.Add(-time.Minute))
	insert(t, repo, "acme", "c1", "p2", "other participant", now)
	insert(t, repo, "globex", "c1", "p1", "other tenant", now)
	insert(t, repo, "acme", "c1", "p1", "too old", now.Add(-40*24*time.Hour))

	tests := []struct {
		name  string
		query core.DurableQuery
		want  []string
	}{
		{
			name:  "session_scope_newest_first",
			query: core.DurableQuery{TenantID: "acme", ParticipantID: "p1", ConversationID: "c1", Since: now.Add(-time.Hour), Limit: 10},
			want:  []string{"second", "first"},
		},
		{
			name:  "participant_global_scope",
			query: core.DurableQuery{TenantID: "acme", ParticipantID: "p1", Since: now.Add(-time.Hour), Limit: 10},
			want:  []string{"other conversation", "second", "first"},
		},
		{
			name:  "limit_applies",
			query: core.DurableQuery{TenantID: "acme", ParticipantID: "p1", Since: now.Add(-time.Hour), Limit: 1},
			want:  []string{"other conversation"},
		},
		{
			name:  "other_tenant_isolated",
			query: core.DurableQuery{TenantID: "globex", ParticipantID: "p1", Since: now.Add(-time.Hour), Limit: 10},
			want:  []string{"other tenant"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := repo.FindRecentDurable(context.Background(), tt.query)
			require.NoError(t, err)

			var got []string
			for _, r := range recs {
				require.Equal(t, core.ShapeTurnPair, r.Shape)
				got = append(got, r.Pair.UserText)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryRepo_RequiresTenant(t *testing.T) {
	repo := NewMemoryRepo(newTestDB(t))
	ctx := context.Background()

	_, err := repo.InsertDurable(ctx, core.DurableInsert{ParticipantID: "p1"})
	assert.ErrorIs(t, err, core.ErrIsolation)

	_, err = repo.FindRecentDurable(ctx, core.DurableQuery{ParticipantID: "p1", Limit: 1})
	assert.ErrorIs(t, err, core.ErrIsolation)

	_, err = repo.DeleteDurableForParticipant(ctx, "", "p1")
	assert.ErrorIs(t, err, core.ErrIsolation)
}

func TestMemoryRepo_LegacyShape(t *testing.T) {
	repo := NewMemoryRepo(newTestDB(t))
	ctx := context.Background()
	ts := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	_, err := repo.InsertLegacy(ctx, "acme", "", "p1", core.LegacyTurnPair{
		UserMessage: "عايز هودي",
		AIResponse:  "تمام، مقاس كام؟",
		Timestamp:   ts,
	})
	require.NoError(t, err)

	recs, err := repo.FindRecentDurable(ctx, core.DurableQuery{TenantID: "acme", ParticipantID: "p1", Since: ts.Add(-time.Minute), Limit: 5})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, core.ShapeLegacy, recs[0].Shape)
	require.NotNil(t, recs[0].Legacy)
	assert.Equal(t, "عايز هودي", recs[0].Legacy.UserMessage)
	assert.True(t, ts.Equal(recs[0].Legacy.Timestamp))
}

func TestMemoryRepo_DeleteDurableOlderThan(t *testing.T) {
	repo := NewMemoryRepo(newTestDB(t))
	ctx := context.Background()
	now := time.Now()
	cutoff := now.Add(-30 * 24 * time.Hour)

	insert(t, repo, "acme", "", "p1", "31 days", now.Add(-31*24*time.Hour))
	insert(t, repo, "acme", "", "p1", "29 days", now.Add(-29*24*time.Hour))
	insert(t, repo, "globex", "", "p1", "globex 31 days", now.Add(-31*24*time.Hour))

	n, err := repo.DeleteDurableOlderThan(ctx, "acme", cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.DeleteDurableOlderThan(ctx, "", cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	recs, err := repo.FindRecentDurable(ctx, core.DurableQuery{TenantID: "acme", ParticipantID: "p1", Since: now.Add(-60 * 24 * time.Hour), Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "29 days", recs[0].Pair.UserText)
}

func TestMemoryRepo_DeleteDurableForParticipant(t *testing.T) {
	repo := NewMemoryRepo(newTestDB(t))
	ctx := context.Background()
	now := time.Now()

	insert(t, repo, "acme", "c1", "p1", "a", now)
	insert(t, repo, "acme", "c2", "p1", "b", now)
	insert(t, repo, "acme2", "c1", "p1", "c", now)

	n, err := repo.DeleteDurableForParticipant(ctx, "acme", "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	recs, err := repo.FindRecentDurable(ctx, core.DurableQuery{TenantID: "acme2", ParticipantID: "p1", Since: now.Add(-time.Hour), Limit: 10})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMemoryRepo_Orphans(t *testing.T) {
	repo := NewMemoryRepo(newTestDB(t))
	ctx := context.Background()

	_, err := repo.InsertLegacy(ctx, "", "", "p1", core.LegacyTurnPair{UserMessage: "hi", Timestamp: time.Now()})
	require.NoError(t, err)
	insert(t, repo, "acme", "", "p1", "scoped", time.Now())

	ids, err := repo.FindOrphanedDurable(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	_, err = repo.ReassignOrphanedDurable(ctx, "")
	assert.ErrorIs(t, err, core.ErrIsolation)

	n, err := repo.ReassignOrphanedDurable(ctx, "acme")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ids, err = repo.FindOrphanedDurable(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
