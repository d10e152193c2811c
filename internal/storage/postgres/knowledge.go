package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/sandevgo/tuskagent/internal/core"
)

func (s *Store) SaveHit(ctx context.Context, tenantID string, hit core.RawHit) (int64, error) {
	if strings.TrimSpace(tenantID) == "" {
		return 0, fmt.Errorf("save knowledge: %w", core.ErrIsolation)
	}
	meta := hit.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("encode knowledge metadata: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO knowledge (tenant_id, kind, content, summary, metadata) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		tenantID, strings.ToLower(hit.Type), hit.Content, hit.Summary, raw,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert knowledge: %w", err)
	}
	return id, nil
}

// Search ranks entries by the share of query terms they contain.
func (s *Store) Search(ctx context.Context, tenantID, query string, limit int) ([]core.RawHit, error) {
	terms := searchTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	patterns := make([]string, len(terms))
	for i, t := range terms {
		patterns[i] = "%" + t + "%"
	}

	rows, err := s.pool.Query(ctx,
		`SELECT kind, content, summary, metadata,
		        (SELECT count(*) FROM unnest($2::text[]) p
		          WHERE lower(content || ' ' || summary) LIKE p)::float8 / $3 AS score
		   FROM knowledge
		  WHERE tenant_id = $1 AND lower(content || ' ' || summary) LIKE ANY ($2::text[])
		  ORDER BY score DESC, created_at DESC
		  LIMIT $4`,
		tenantID, patterns, len(terms), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}
	defer rows.Close()

	var hits []core.RawHit
	for rows.Next() {
		var (
			hit  core.RawHit
			meta []byte
		)
		if err := rows.Scan(&hit.Type, &hit.Content, &hit.Summary, &meta, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan knowledge: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &hit.Metadata); err != nil {
				return nil, fmt.Errorf("decode knowledge metadata: %w", err)
			}
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func searchTerms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, f := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if _, ok := seen[f]; ok || len([]rune(f)) < 3 {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}
