package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/tuskagent/internal/core"
)

type OrdersRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewOrdersRepo(db *sql.DB) *OrdersRepo {
	return &OrdersRepo{db: db, now: time.Now}
}

func (r *OrdersRepo) CreateOrder(ctx context.Context, tenantID string, draft core.OrderDraft) (*core.OrderRecord, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("create order: %w", core.ErrIsolation)
	}
	if missing := draft.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("create order: missing %s: %w", strings.Join(missing, ", "), core.ErrValidation)
	}

	items, err := json.Marshal(draft.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}

	now := r.now().UTC()
	rec := &core.OrderRecord{
		ID:          uuid.NewString(),
		OrderNumber: core.NewOrderNumber(now),
		TenantID:    tenantID,
		Draft:       draft,
		CreatedAt:   now,
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, tenant_id, customer_name, customer_phone, customer_address, city, items, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OrderNumber, tenantID,
		draft.CustomerName, draft.CustomerPhone, draft.CustomerAddress, draft.City,
		string(items), now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}
	return rec, nil
}

func (r *OrdersRepo) GetOrder(ctx context.Context, tenantID, orderNumber string) (*core.OrderRecord, error) {
	var (
		rec       core.OrderRecord
		items     string
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_number, tenant_id, customer_name, customer_phone, customer_address, city, items, created_at
		 FROM orders WHERE tenant_id = ? AND order_number = ?`,
		tenantID, orderNumber,
	).Scan(&rec.ID, &rec.OrderNumber, &rec.TenantID,
		&rec.Draft.CustomerName, &rec.Draft.CustomerPhone, &rec.Draft.CustomerAddress, &rec.Draft.City,
		&items, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &rec.Draft.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &rec, nil
}
