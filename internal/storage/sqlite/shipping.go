package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sandevgo/tuskagent/internal/core"
)

type ShippingRepo struct {
	db *sql.DB
}

func NewShippingRepo(db *sql.DB) *ShippingRepo {
	return &ShippingRepo{db: db}
}

func (r *ShippingRepo) UpsertZone(ctx context.Context, tenantID, city, estimate string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shipping_zones (tenant_id, city, delivery_estimate) VALUES (?, ?, ?)
		 ON CONFLICT (tenant_id, city) DO UPDATE SET delivery_estimate = excluded.delivery_estimate`,
		tenantID, core.NormalizeCity(city), estimate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert shipping zone: %w", err)
	}
	return nil
}

func (r *ShippingRepo) EstimateDeliveryTime(ctx context.Context, tenantID, city string) (string, error) {
	var estimate string
	err := r.db.QueryRowContext(ctx,
		`SELECT delivery_estimate FROM shipping_zones WHERE tenant_id = ? AND city = ?`,
		tenantID, core.NormalizeCity(city),
	).Scan(&estimate)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to lookup delivery estimate: %w", err)
	}
	return estimate, nil
}
