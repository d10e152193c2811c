package sqlite

import (
	"context"
	"testing"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeRepo_Search(t *testing.T) {
	ctx := context.Background()
	repo := NewKnowledgeRepo(newTestDB(t))

	_, err := repo.SaveHit(ctx, "shop-a", core.RawHit{
		Type:     "product",
		Content:  "قميص قطن أبيض مقاس L",
		Metadata: map[string]any{"id": "p1", "price": 350.0},
	})
	require.NoError(t, err)
	_, err = repo.SaveHit(ctx, "shop-a", core.RawHit{
		Type:    "faq",
		Content: "الشحن يستغرق يومين",
		Summary: "مدة الشحن",
	})
	require.NoError(t, err)
	_, err = repo.SaveHit(ctx, "shop-b", core.RawHit{Type: "product", Content: "قميص صوف"})
	require.NoError(t, err)

	t.Run("ranks by matched terms within tenant", func(t *testing.T) {
		hits, err := repo.Search(ctx, "shop-a", "عايز قميص قطن", 5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "product", hits[0].Type)
		assert.Equal(t, "p1", hits[0].Metadata["id"])
		assert.InDelta(t, 2.0/3.0, hits[0].Score, 0.001)
	})

	t.Run("summary matches", func(t *testing.T) {
		hits, err := repo.Search(ctx, "shop-a", "مدة الشحن كام", 5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "faq", hits[0].Type)
	})

	t.Run("other tenant never leaks", func(t *testing.T) {
		hits, err := repo.Search(ctx, "shop-b", "قطن أبيض", 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("short query", func(t *testing.T) {
		hits, err := repo.Search(ctx, "shop-a", "a b", 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestKnowledgeRepo_RequiresTenant(t *testing.T) {
	repo := NewKnowledgeRepo(newTestDB(t))
	_, err := repo.SaveHit(context.Background(), " ", core.RawHit{Type: "faq", Content: "x"})
	assert.ErrorIs(t, err, core.ErrIsolation)
}
