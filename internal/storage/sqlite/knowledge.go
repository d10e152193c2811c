package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sandevgo/tuskagent/internal/core"
)

// knowledgeScanLimit caps the candidate rows ranked per search.
const knowledgeScanLimit = 200

type KnowledgeRepo struct {
	db *sql.DB
}

func NewKnowledgeRepo(db *sql.DB) *KnowledgeRepo {
	return &KnowledgeRepo{db: db}
}

func (r *KnowledgeRepo) SaveHit(ctx context.Context, tenantID string, hit core.RawHit) (int64, error) {
	if strings.TrimSpace(tenantID) == "" {
		return 0, fmt.Errorf("save knowledge: %w", core.ErrIsolation)
	}
	meta, err := json.Marshal(hit.Metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to encode knowledge metadata: %w", err)
	}
	if hit.Metadata == nil {
		meta = []byte("{}")
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO knowledge (tenant_id, kind, content, summary, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		tenantID, strings.ToLower(hit.Type), hit.Content, hit.Summary, string(meta), time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert knowledge: %w", err)
	}
	return res.LastInsertId()
}

// Search ranks the tenant's entries by how many query terms they contain.
// Entries matching no term are not returned.
func (r *KnowledgeRepo) Search(ctx context.Context, tenantID, query string, limit int) ([]core.RawHit, error) {
	terms := searchTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	clauses := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)*2+2)
	args = append(args, tenantID)
	for _, t := range terms {
		clauses = append(clauses, "(lower(content) LIKE ? OR lower(summary) LIKE ?)")
		pattern := "%" + t + "%"
		args = append(args, pattern, pattern)
	}
	args = append(args, knowledgeScanLimit)

	q := `SELECT kind, content, summary, metadata FROM knowledge
		WHERE tenant_id = ? AND (` + strings.Join(clauses, " OR ") + `)
		ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("knowledge search failed: %w", err)
	}
	defer rows.Close()

	var hits []core.RawHit
	for rows.Next() {
		var (
			hit  core.RawHit
			meta string
		)
		if err := rows.Scan(&hit.Type, &hit.Content, &hit.Summary, &meta); err != nil {
			return nil, err
		}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &hit.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode knowledge metadata: %w", err)
			}
		}
		hit.Score = score(hit, terms)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func searchTerms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, f := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

func score(hit core.RawHit, terms []string) float64 {
	text := strings.ToLower(hit.Content + " " + hit.Summary)
	var matched int
	for _, t := range terms {
		if strings.Contains(text, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
