package core

import (
	"context"
	"encoding/json"
)

type HitType string

const (
	HitProduct HitType = "product"
	HitFAQ     HitType = "faq"
	HitPolicy  HitType = "policy"
)

// RawHit is a knowledge-base record as returned by retrieval.
type RawHit struct {
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	Summary  string         `json:"summary,omitempty"`
	Score    float64        `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type RagContextItem struct {
	Type     HitType        `json:"type"`
	Index    int            `json:"index"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type RagContext struct {
	Items []RagContextItem
}

func (c RagContext) HasData() bool {
	return len(c.Items) > 0
}

// HasProducts is derived from Items on every call.
func (c RagContext) HasProducts() bool {
	for _, it := range c.Items {
		if it.Type == HitProduct {
			return true
		}
	}
	return false
}

func (c RagContext) MarshalJSON() ([]byte, error) {
	items := c.Items
	if items == nil {
		items = []RagContextItem{}
	}
	return json.Marshal(struct {
		HasData     bool             `json:"hasData"`
		HasProducts bool             `json:"hasProducts"`
		Items       []RagContextItem `json:"items"`
	}{c.HasData(), c.HasProducts(), items})
}

// KnowledgeRepository stores the tenant's catalogue, FAQ and policy entries.
type KnowledgeRepository interface {
	SaveHit(ctx context.Context, tenantID string, hit RawHit) (int64, error)
	Search(ctx context.Context, tenantID, query string, limit int) ([]RawHit, error)
}
