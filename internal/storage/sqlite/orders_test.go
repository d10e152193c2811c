package sqlite

import (
	"context"
	"testing"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullDraft() core.OrderDraft {
	return core.OrderDraft{
		CustomerName:    "منى أحمد",
		CustomerPhone:   "01012345678",
		CustomerAddress: "شارع التحرير عمارة 5",
		City:            "القاهرة",
		Items:           []core.OrderItem{{Product: "هودي", Size: "L", Color: "اسود", Quantity: 1}},
	}
}

func TestOrdersRepo_CreateAndGet(t *testing.T) {
	repo := NewOrdersRepo(newTestDB(t))
	ctx := context.Background()

	rec, err := repo.CreateOrder(ctx, "acme", fullDraft())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "acme", rec.TenantID)

	got, err := repo.GetOrder(ctx, "acme", rec.OrderNumber)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fullDraft(), got.Draft)

	other, err := repo.GetOrder(ctx, "globex", rec.OrderNumber)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestOrdersRepo_CreateRejectsInvalid(t *testing.T) {
	repo := NewOrdersRepo(newTestDB(t))
	ctx := context.Background()

	_, err := repo.CreateOrder(ctx, "", fullDraft())
	assert.ErrorIs(t, err, core.ErrIsolation)

	d := fullDraft()
	d.CustomerPhone = ""
	_, err = repo.CreateOrder(ctx, "acme", d)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestShippingRepo_EstimateDeliveryTime(t *testing.T) {
	repo := NewShippingRepo(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertZone(ctx, "acme", "Cairo", "2-3 أيام عمل"))

	tests := []struct {
		name   string
		tenant string
		city   string
		want   string
	}{
		{name: "alias_lookup", tenant: "acme", city: "القاهره", want: "2-3 أيام عمل"},
		{name: "canonical_lookup", tenant: "acme", city: "القاهرة", want: "2-3 أيام عمل"},
		{name: "unknown_city", tenant: "acme", city: "أسوان", want: ""},
		{name: "other_tenant", tenant: "globex", city: "cairo", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.EstimateDeliveryTime(ctx, tt.tenant, tt.city)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
