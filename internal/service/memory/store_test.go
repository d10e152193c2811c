package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/service/cache"
	"github.com/sandevgo/tuskagent/internal/storage/sqlite"
	"github.com/sandevgo/tuskagent/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store *Store
	repo  *sqlite.MemoryRepo
	kv    *cache.Striped
	clock *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &testClock{now: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)}
	repo := sqlite.NewMemoryRepo(db)
	kv := cache.NewStriped(cache.WithClock(clock.Now))
	store := NewStore(repo, kv, DefaultConfig(), WithClock(clock.Now))

	return &fixture{store: store, repo: repo, kv: kv, clock: clock}
}

func TestStore_AppendThenGetRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := core.NewTenantKey("shop-a", "", "cust-1")

	written, err := f.store.Append(ctx, key, core.TurnPair{UserText: "عايز تيشيرت", AgentText: "تمام، مقاس ايه؟"})
	require.NoError(t, err)
	require.Len(t, written, 2)

	got, err := f.store.GetRecent(ctx, key, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "عايز تيشيرت", got[0].Content)
	assert.True(t, got[0].IsFromCustomer)
	assert.Equal(t, "تمام، مقاس ايه؟", got[1].Content)
	assert.False(t, got[1].IsFromCustomer)
	assert.Equal(t, written, got)
}

func TestStore_AppendOnlyOneSide(t *testing.T) {
	f := newFixture(t)
	key := core.NewTenantKey("shop-a", "", "cust-1")

	turns, err := f.store.Append(context.Background(), key, core.TurnPair{AgentText: "Welcome back!"})
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.False(t, turns[0].IsFromCustomer)
}

func TestStore_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		key  core.TenantKey
		pair core.TurnPair
		want error
	}{
		{
			name: "missing tenant",
			key:  core.NewTenantKey("", "", "cust-1"),
			pair: core.TurnPair{UserText: "hi"},
			want: core.ErrIsolation,
		},
		{
			name: "missing participant",
			key:  core.NewTenantKey("shop-a", "", " "),
			pair: core.TurnPair{UserText: "hi"},
			want: core.ErrValidation,
		},
		{
			name: "empty exchange",
			key:  core.NewTenantKey("shop-a", "", "cust-1"),
			pair: core.TurnPair{UserText: "  ", AgentText: ""},
			want: core.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.store.Append(ctx, tt.key, tt.pair)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.store.GetRecent(ctx, core.NewTenantKey("", "", "cust-1"), 5)
	assert.ErrorIs(t, err, core.ErrIsolation)
	assert.Zero(t, f.kv.Len())
}

func TestStore_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keyA := core.NewTenantKey("shop-a", "", "cust-1")
	keyB := core.NewTenantKey("shop-b", "", "cust-1")

	_, err := f.store.Append(ctx, keyA, core.TurnPair{UserText: "secret of A", AgentText: "ok"})
	require.NoError(t, err)

	// cold and warm reads of tenant B must both be empty
	for range 2 {
		got, err := f.store.GetRecent(ctx, keyB, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestStore_SessionAndGlobalScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	global := core.NewTenantKey("shop-a", "", "cust-1")
	conv1 := core.NewTenantKey("shop-a", "conv-1", "cust-1")
	conv2 := core.NewTenantKey("shop-a", "conv-2", "cust-1")

	// warm the global entry so the appends extend it
	_, err := f.store.GetRecent(ctx, global, 10)
	require.NoError(t, err)

	_, err = f.store.Append(ctx, conv1, core.TurnPair{UserText: "one", AgentText: "r1"})
	require.NoError(t, err)
	_, err = f.store.Append(ctx, conv2, core.TurnPair{UserText: "two", AgentText: "r2"})
	require.NoError(t, err)

	got, err := f.store.GetRecent(ctx, conv1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "r1"}, contents(got))

	got, err = f.store.GetRecent(ctx, global, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "r1", "two", "r2"}, contents(got))
}

func TestStore_ColdReadMatchesWarmRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := core.NewTenantKey("shop-a", "", "cust-1")

	for i, text := range []string{"a", "b", "c"} {
		f.clock.Advance(time.Duration(i+1) * time.Minute)
		_, err := f.store.Append(ctx, key, core.TurnPair{UserText: text, AgentText: text + "!"})
		require.NoError(t, err)
	}

	cold, err := f.store.GetRecent(ctx, key, 4)
	require.NoError(t, err)
	warm, err := f.store.GetRecent(ctx, key, 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "b!", "c", "c!"}, contents(cold))
	assert.Equal(t, cold, warm)
}

func TestStore_Truncation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := core.NewTenantKey("shop-a", "", "cust-1")

	long := strings.Repeat("ب", DefaultContentLimit+500)
	_, err := f.store.Append(ctx, key, core.TurnPair{UserText: long, AgentText: "ok"})
	require.NoError(t, err)

	// force a reload from the durable tier too
	f.kv.Delete(key.CacheKey())

	got, err := f.store.GetRecent(ctx, key, 10)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, turn := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(turn.Content), DefaultContentLimit)
	}
	assert.True(t, strings.HasSuffix(got[0].Content, core.TruncationMarker))
}

func TestStore_LegacyMigration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := core.NewTenantKey("shop-a", "", "cust-1")

	_, err := f.repo.InsertLegacy(ctx, "shop-a", "", "cust-1", core.LegacyTurnPair{
		UserMessage: "legacy question",
		AIResponse:  "legacy answer",
		Timestamp:   f.clock.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	_, err = f.store.Append(ctx, key, core.TurnPair{UserText: "new question", AgentText: "new answer"})
	require.NoError(t, err)

	first, err := f.store.GetRecent(ctx, key, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy question", "legacy answer", "new question", "new answer"}, contents(first))
	assert.True(t, first[0].IsFromCustomer)
	assert.False(t, first[1].IsFromCustomer)

	// migrating again from cold state produces identical turns
	f.kv.Delete(key.CacheKey())
	second, err := f.store.GetRecent(ctx, key, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStore_RetentionWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	insert := func(text string, age time.Duration) {
		_, err := f.repo.InsertDurable(ctx, core.DurableInsert{
			TenantID:      "shop-a",
			ParticipantID: "cust-1",
			Pair:          core.TurnPair{UserText: text},
			CreatedAt:     now.Add(-age),
		})
		require.NoError(t, err)
	}
	insert("31 days", 31*24*time.Hour)
	insert("29 days", 29*24*time.Hour)

	got, err := f.store.GetRecent(ctx, core.NewTenantKey("shop-a", "", "cust-1"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"29 days"}, contents(got))
}

func TestStore_DuplicateRecordsCollapse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	for _, offset := range []time.Duration{-10 * time.Second, -9 * time.Second} {
		_, err := f.repo.InsertDurable(ctx, core.DurableInsert{
			TenantID:      "shop-a",
			ParticipantID: "cust-1",
			Pair:          core.TurnPair{UserText: "hi", AgentText: "hello"},
			CreatedAt:     now.Add(offset),
		})
		require.NoError(t, err)
	}

	got, err := f.store.GetRecent(ctx, core.NewTenantKey("shop-a", "", "cust-1"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "hello"}, contents(got))
}

func TestStore_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := core.NewTenantKey("shop-a", "", "cust-1")

	_, err := f.store.GetRecent(ctx, key, 1)
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := strings.Repeat("x", i+1)
			_, err := f.store.Append(ctx, key, core.TurnPair{UserText: text, AgentText: text})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.store.GetRecent(ctx, key, writers*2)
	require.NoError(t, err)
	require.Len(t, got, writers*2)
	for i := 0; i < len(got); i += 2 {
		assert.True(t, got[i].IsFromCustomer)
		assert.False(t, got[i+1].IsFromCustomer)
		assert.Equal(t, got[i].Content, got[i+1].Content)
	}
}

func TestStore_PersistenceFailure(t *testing.T) {
	kv := cache.NewStriped()
	repo := &failingRepo{err: errors.New("connection refused")}
	store := NewStore(repo, kv, DefaultConfig(), WithRetrier(retry.NewRetrier(&retry.Config{MaxRetries: 1})))
	key := core.NewTenantKey("shop-a", "", "cust-1")

	_, err := store.Append(context.Background(), key, core.TurnPair{UserText: "hi"})
	assert.ErrorIs(t, err, core.ErrPersistence)
	assert.Equal(t, 2, repo.inserts)
	assert.Zero(t, kv.Len())
}

func TestStore_PromptHistoryBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := core.NewTenantKey("shop-a", "", "cust-1")

	for _, text := range []string{"first message here", "second message here", "third message here"} {
		_, err := f.store.Append(ctx, key, core.TurnPair{UserText: text})
		require.NoError(t, err)
	}

	all, err := f.store.PromptHistory(ctx, key, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := f.store.PromptHistory(ctx, key, 10, 14)
	require.NoError(t, err)
	require.NotEmpty(t, some)
	assert.Less(t, len(some), 3)
	assert.Equal(t, "third message here", some[len(some)-1].Content)
}

func contents(turns []core.MemoryTurn) []string {
	out := make([]string, len(turns))
	for i, turn := range turns {
		out[i] = turn.Content
	}
	return out
}

type failingRepo struct {
	core.MemoryRepository
	err     error
	inserts int
}

func (r *failingRepo) InsertDurable(ctx context.Context, rec core.DurableInsert) (string, error) {
	r.inserts++
	return "", r.err
}
