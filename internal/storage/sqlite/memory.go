package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/pkg/log"
)

type MemoryRepo struct {
	db *sql.DB
}

func NewMemoryRepo(db *sql.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

func (r *MemoryRepo) InsertDurable(ctx context.Context, rec core.DurableInsert) (string, error) {
	if strings.TrimSpace(rec.TenantID) == "" {
		return "", fmt.Errorf("insert memory: %w", core.ErrIsolation)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	id := uuid.NewString()
	query := `INSERT INTO memory_records
		(id, tenant_id, conversation_id, participant_id, user_text, agent_text, intent, sentiment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		id,
		rec.TenantID,
		rec.ConversationID,
		rec.ParticipantID,
		rec.Pair.UserText,
		rec.Pair.AgentText,
		rec.Pair.Intent,
		rec.Pair.Sentiment,
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert memory record: %w", err)
	}
	return id, nil
}

// InsertLegacy stores a record in the historical payload shape.
func (r *MemoryRepo) InsertLegacy(ctx context.Context, tenantID, conversationID, participantID string, legacy core.LegacyTurnPair) (string, error) {
	payload, err := json.Marshal(legacy)
	if err != nil {
		return "", fmt.Errorf("marshal legacy payload: %w", err)
	}

	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO memory_records (id, tenant_id, conversation_id, participant_id, legacy_payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, nullable(tenantID), conversationID, participantID, string(payload), legacy.Timestamp.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert legacy record: %w", err)
	}
	return id, nil
}

// FindRecentDurable returns records newest-first.
func (r *MemoryRepo) FindRecentDurable(ctx context.Context, q core.DurableQuery) ([]core.DurableRecord, error) {
	if strings.TrimSpace(q.TenantID) == "" {
		return nil, fmt.Errorf("find memory: %w", core.ErrIsolation)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, tenant_id, conversation_id, participant_id, user_text, agent_text,
		intent, sentiment, legacy_payload, created_at
		FROM memory_records
		WHERE tenant_id = ? AND participant_id = ? AND created_at >= ?`)
	args := []any{q.TenantID, q.ParticipantID, q.Since.UnixMilli()}

	if q.ConversationID != "" {
		sb.WriteString(` AND conversation_id = ?`)
		args = append(args, q.ConversationID)
	}
	sb.WriteString(` ORDER BY created_at DESC, rowid DESC LIMIT ?`)
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory records: %w", err)
	}
	defer rows.Close()

	var records []core.DurableRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Debug().Int("count", len(records)).Msg("loaded durable memory records")
	return records, nil
}

func scanRecord(rows *sql.Rows) (core.DurableRecord, error) {
	var (
		rec                core.DurableRecord
		tenantID, userText sql.NullString
		agentText, legacy  sql.NullString
		intent, sentiment  string
		createdAt          int64
	)

	// Use NullString to safely handle rows written in either shape
	if err := rows.Scan(&rec.ID, &tenantID, &rec.ConversationID, &rec.ParticipantID,
		&userText, &agentText, &intent, &sentiment, &legacy, &createdAt); err != nil {
		return rec, fmt.Errorf("failed to scan memory record: %w", err)
	}

	rec.TenantID = tenantID.String
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()

	if legacy.Valid && strings.TrimSpace(legacy.String) != "" {
		var pair core.LegacyTurnPair
		if err := json.Unmarshal([]byte(legacy.String), &pair); err != nil {
			return rec, fmt.Errorf("failed to decode legacy payload %s: %w", rec.ID, err)
		}
		if pair.Timestamp.IsZero() {
			pair.Timestamp = rec.CreatedAt
		}
		rec.Shape = core.ShapeLegacy
		rec.Legacy = &pair
		return rec, nil
	}

	rec.Shape = core.ShapeTurnPair
	rec.Pair = &core.TurnPair{
		UserText:  userText.String,
		AgentText: agentText.String,
		Intent:    intent,
		Sentiment: sentiment,
	}
	return rec, nil
}

// DeleteDurableOlderThan purges records created before the cutoff. An empty
// tenantID sweeps every tenant.
func (r *MemoryRepo) DeleteDurableOlderThan(ctx context.Context, tenantID string, before time.Time) (int64, error) {
	query := `DELETE FROM memory_records WHERE created_at < ?`
	args := []any{before.UnixMilli()}
	if tenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, tenantID)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge memory records: %w", err)
	}
	return res.RowsAffected()
}

func (r *MemoryRepo) DeleteDurableForParticipant(ctx context.Context, tenantID, participantID string) (int64, error) {
	if strings.TrimSpace(tenantID) == "" {
		return 0, fmt.Errorf("wipe memory: %w", core.ErrIsolation)
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM memory_records WHERE tenant_id = ? AND participant_id = ?`,
		tenantID, participantID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to wipe participant memory: %w", err)
	}
	return res.RowsAffected()
}

func (r *MemoryRepo) FindOrphanedDurable(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM memory_records WHERE tenant_id IS NULL OR TRIM(tenant_id) = '' ORDER BY created_at LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphaned records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MemoryRepo) ReassignOrphanedDurable(ctx context.Context, tenantID string) (int64, error) {
	if strings.TrimSpace(tenantID) == "" {
		return 0, fmt.Errorf("reassign orphans: %w", core.ErrIsolation)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE memory_records SET tenant_id = ? WHERE tenant_id IS NULL OR TRIM(tenant_id) = ''`,
		tenantID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign orphaned records: %w", err)
	}
	return res.RowsAffected()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
