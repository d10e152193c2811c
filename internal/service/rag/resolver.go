package rag

import (
	"strings"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/pkg/conv"
	"github.com/sandevgo/tuskagent/pkg/tokens"
)

const DefaultMaxItemTokens = 600

// Metadata keys that may reach a prompt. Everything else on a hit is
// dropped.
var allowedMetadata = map[string]struct{}{
	"id":              {},
	"name":            {},
	"price":           {},
	"category":        {},
	"hasImages":       {},
	"has_images":      {},
	"hasImage":        {},
	"imagesAvailable": {},
	"images":          {},
	"variants":        {},
}

var allowedVariantFields = map[string]struct{}{
	"id":        {},
	"name":      {},
	"size":      {},
	"color":     {},
	"price":     {},
	"available": {},
	"inStock":   {},
}

var allowedImageFields = map[string]struct{}{
	"url": {},
	"alt": {},
}

// Resolver turns retrieval hits into prompt context. It performs no I/O.
type Resolver struct {
	maxItemTokens int
}

// NewResolver caps each item's content at maxItemTokens; zero or less
// disables the cap.
func NewResolver(maxItemTokens int) *Resolver {
	return &Resolver{maxItemTokens: maxItemTokens}
}

func (r *Resolver) Resolve(hits []core.RawHit) core.RagContext {
	var out core.RagContext
	for _, hit := range hits {
		typ, ok := hitType(hit.Type)
		if !ok {
			continue
		}

		content := hitContent(typ, hit)
		if r.maxItemTokens > 0 {
			content = tokens.Truncate(content, r.maxItemTokens)
		}
		meta := sanitizeMetadata(hit.Metadata)
		if content == "" && meta == nil {
			continue
		}

		out.Items = append(out.Items, core.RagContextItem{
			Type:     typ,
			Index:    len(out.Items) + 1,
			Content:  content,
			Metadata: meta,
		})
	}
	return out
}

func hitType(raw string) (core.HitType, bool) {
	switch typ := core.HitType(strings.ToLower(strings.TrimSpace(raw))); typ {
	case core.HitProduct, core.HitFAQ, core.HitPolicy:
		return typ, true
	default:
		return "", false
	}
}

// hitContent picks the text for one hit. Products always prefer the full
// hydrated content since summaries drop size and color detail; FAQ and
// policy hits use the shorter summary when there is one.
func hitContent(typ core.HitType, hit core.RawHit) string {
	first, second := hit.Content, hit.Summary
	if typ != core.HitProduct {
		first, second = second, first
	}
	if text := conv.HTMLToText(first); text != "" {
		return text
	}
	return conv.HTMLToText(second)
}

func sanitizeMetadata(raw map[string]any) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	out := make(map[string]any)
	for k, v := range raw {
		if _, ok := allowedMetadata[k]; !ok || v == nil {
			continue
		}
		switch k {
		case "variants":
			if list := filterList(v, allowedVariantFields); list != nil {
				out[k] = list
			}
		case "images":
			if list := filterList(v, allowedImageFields); list != nil {
				out[k] = list
			}
		default:
			if isScalar(v) {
				out[k] = v
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// filterList keeps scalar entries as they are and reduces object entries
// to the allowed fields.
func filterList(v any, allowed map[string]struct{}) []any {
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []map[string]any:
		items = make([]any, len(list))
		for i, m := range list {
			items[i] = m
		}
	case []string:
		items = make([]any, len(list))
		for i, str := range list {
			items[i] = str
		}
	default:
		return nil
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		switch val := item.(type) {
		case map[string]any:
			clean := make(map[string]any)
			for k, fv := range val {
				if _, ok := allowed[k]; ok && isScalar(fv) {
					clean[k] = fv
				}
			}
			if len(clean) > 0 {
				out = append(out, clean)
			}
		default:
			if isScalar(val) {
				out = append(out, val)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int64, int32, uint, uint64, uint32:
		return true
	default:
		return false
	}
}
