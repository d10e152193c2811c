// Package postgres implements the durable repositories on PostgreSQL for
// deployments that run more than one agent process.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sandevgo/tuskagent/internal/core"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memory_records (
			id TEXT PRIMARY KEY,
			tenant_id TEXT,
			conversation_id TEXT NOT NULL DEFAULT '',
			participant_id TEXT NOT NULL,
			user_text TEXT,
			agent_text TEXT,
			intent TEXT NOT NULL DEFAULT '',
			sentiment TEXT NOT NULL DEFAULT '',
			legacy_payload JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memory_scope ON memory_records (tenant_id, participant_id, conversation_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_memory_created ON memory_records (created_at);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			order_number TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			customer_phone TEXT NOT NULL,
			customer_address TEXT NOT NULL,
			city TEXT NOT NULL,
			items JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS shipping_zones (
			tenant_id TEXT NOT NULL,
			city TEXT NOT NULL,
			delivery_estimate TEXT NOT NULL,
			PRIMARY KEY (tenant_id, city)
		);`,
		`CREATE TABLE IF NOT EXISTS knowledge (
			id BIGSERIAL PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_knowledge_tenant ON knowledge (tenant_id, kind);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) InsertDurable(ctx context.Context, rec core.DurableInsert) (string, error) {
	if strings.TrimSpace(rec.TenantID) == "" {
		return "", fmt.Errorf("insert memory: %w", core.ErrIsolation)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO memory_records
		 (id, tenant_id, conversation_id, participant_id, user_text, agent_text, intent, sentiment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, rec.TenantID, rec.ConversationID, rec.ParticipantID,
		rec.Pair.UserText, rec.Pair.AgentText, rec.Pair.Intent, rec.Pair.Sentiment,
		rec.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert memory record: %w", err)
	}
	return id, nil
}

func (s *Store) FindRecentDurable(ctx context.Context, q core.DurableQuery) ([]core.DurableRecord, error) {
	if strings.TrimSpace(q.TenantID) == "" {
		return nil, fmt.Errorf("find memory: %w", core.ErrIsolation)
	}

	query := `SELECT id, tenant_id, conversation_id, participant_id, user_text, agent_text,
		intent, sentiment, legacy_payload, created_at
		FROM memory_records
		WHERE tenant_id = $1 AND participant_id = $2 AND created_at >= $3`
	args := []any{q.TenantID, q.ParticipantID, q.Since}
	if q.ConversationID != "" {
		query += ` AND conversation_id = $4 ORDER BY created_at DESC LIMIT $5`
		args = append(args, q.ConversationID, q.Limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $4`
		args = append(args, q.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memory records: %w", err)
	}
	defer rows.Close()

	var records []core.DurableRecord
	for rows.Next() {
		var (
			rec                 core.DurableRecord
			tenantID            *string
			userText, agentText *string
			legacy              []byte
		)
		var pair core.TurnPair
		if err := rows.Scan(&rec.ID, &tenantID, &rec.ConversationID, &rec.ParticipantID,
			&userText, &agentText, &pair.Intent, &pair.Sentiment, &legacy, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		if tenantID != nil {
			rec.TenantID = *tenantID
		}

		if len(legacy) > 0 {
			var lp core.LegacyTurnPair
			if err := json.Unmarshal(legacy, &lp); err != nil {
				return nil, fmt.Errorf("decode legacy payload %s: %w", rec.ID, err)
			}
			if lp.Timestamp.IsZero() {
				lp.Timestamp = rec.CreatedAt
			}
			rec.Shape = core.ShapeLegacy
			rec.Legacy = &lp
		} else {
			if userText != nil {
				pair.UserText = *userText
			}
			if agentText != nil {
				pair.AgentText = *agentText
			}
			rec.Shape = core.ShapeTurnPair
			rec.Pair = &pair
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory rows: %w", err)
	}
	return records, nil
}

func (s *Store) DeleteDurableOlderThan(ctx context.Context, tenantID string, before time.Time) (int64, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if tenantID == "" {
		tag, err = s.pool.Exec(ctx, `DELETE FROM memory_records WHERE created_at < $1`, before)
	} else {
		tag, err = s.pool.Exec(ctx, `DELETE FROM memory_records WHERE created_at < $1 AND tenant_id = $2`, before, tenantID)
	}
	if err != nil {
		return 0, fmt.Errorf("purge memory records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteDurableForParticipant(ctx context.Context, tenantID, participantID string) (int64, error) {
	if strings.TrimSpace(tenantID) == "" {
		return 0, fmt.Errorf("wipe memory: %w", core.ErrIsolation)
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM memory_records WHERE tenant_id = $1 AND participant_id = $2`,
		tenantID, participantID,
	)
	if err != nil {
		return 0, fmt.Errorf("wipe participant memory: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) FindOrphanedDurable(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM memory_records WHERE tenant_id IS NULL OR btrim(tenant_id) = '' ORDER BY created_at LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query orphaned records: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect orphaned records: %w", err)
	}
	return ids, nil
}

func (s *Store) ReassignOrphanedDurable(ctx context.Context, tenantID string) (int64, error) {
	if strings.TrimSpace(tenantID) == "" {
		return 0, fmt.Errorf("reassign orphans: %w", core.ErrIsolation)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE memory_records SET tenant_id = $1 WHERE tenant_id IS NULL OR btrim(tenant_id) = ''`,
		tenantID,
	)
	if err != nil {
		return 0, fmt.Errorf("reassign orphaned records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CreateOrder(ctx context.Context, tenantID string, draft core.OrderDraft) (*core.OrderRecord, error) {
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

	now := time.Now().UTC()
	rec := &core.OrderRecord{
		ID:          uuid.NewString(),
		OrderNumber: core.NewOrderNumber(now),
		TenantID:    tenantID,
		Draft:       draft,
		CreatedAt:   now,
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO orders (id, order_number, tenant_id, customer_name, customer_phone, customer_address, city, items, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.OrderNumber, tenantID,
		draft.CustomerName, draft.CustomerPhone, draft.CustomerAddress, draft.City,
		items, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return rec, nil
}

func (s *Store) EstimateDeliveryTime(ctx context.Context, tenantID, city string) (string, error) {
	var estimate string
	err := s.pool.QueryRow(ctx,
		`SELECT delivery_estimate FROM shipping_zones WHERE tenant_id = $1 AND city = $2`,
		tenantID, core.NormalizeCity(city),
	).Scan(&estimate)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup delivery estimate: %w", err)
	}
	return estimate, nil
}

func (s *Store) UpsertZone(ctx context.Context, tenantID, city, estimate string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO shipping_zones (tenant_id, city, delivery_estimate) VALUES ($1, $2, $3)
		 ON CONFLICT (tenant_id, city) DO UPDATE SET delivery_estimate = EXCLUDED.delivery_estimate`,
		tenantID, core.NormalizeCity(city), estimate,
	)
	if err != nil {
		return fmt.Errorf("upsert shipping zone: %w", err)
	}
	return nil
}
