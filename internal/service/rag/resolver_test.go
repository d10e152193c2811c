package rag

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(DefaultMaxItemTokens)

	tests := []struct {
		name         string
		hits         []core.RawHit
		wantTypes    []core.HitType
		wantContent  []string
		wantProducts bool
	}{
		{
			name:        "empty",
			hits:        nil,
			wantTypes:   nil,
			wantContent: nil,
		},
		{
			name: "product prefers content over summary",
			hits: []core.RawHit{
				{Type: "product", Content: "Cotton shirt. Sizes M, L. Colors red, black.", Summary: "Cotton shirt"},
			},
			wantTypes:    []core.HitType{core.HitProduct},
			wantContent:  []string{"Cotton shirt. Sizes M, L. Colors red, black."},
			wantProducts: true,
		},
		{
			name: "product falls back to summary",
			hits: []core.RawHit{
				{Type: "product", Content: "  ", Summary: "Linen trousers"},
			},
			wantTypes:    []core.HitType{core.HitProduct},
			wantContent:  []string{"Linen trousers"},
			wantProducts: true,
		},
		{
			name: "faq uses summary",
			hits: []core.RawHit{
				{Type: "faq", Content: "Long answer about returns and exchanges", Summary: "Returns within 14 days"},
			},
			wantTypes:   []core.HitType{core.HitFAQ},
			wantContent: []string{"Returns within 14 days"},
		},
		{
			name: "unknown types dropped",
			hits: []core.RawHit{
				{Type: "blog_post", Content: "new arrivals"},
				{Type: "Policy", Content: "Cash on delivery only"},
				{Type: "", Content: "nothing"},
			},
			wantTypes:   []core.HitType{core.HitPolicy},
			wantContent: []string{"Cash on delivery only"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.hits)

			var types []core.HitType
			var content []string
			for i, item := range got.Items {
				assert.Equal(t, i+1, item.Index)
				types = append(types, item.Type)
				content = append(content, item.Content)
			}
			assert.Equal(t, tt.wantTypes, types)
			assert.Equal(t, tt.wantContent, content)
			assert.Equal(t, len(tt.wantTypes) > 0, got.HasData())
			assert.Equal(t, tt.wantProducts, got.HasProducts())
		})
	}
}

func TestResolver_MetadataAllowList(t *testing.T) {
	r := NewResolver(0)
	hits := []core.RawHit{
		{
			Type:    "product",
			Content: "Hoodie",
			Metadata: map[string]any{
				"id":            "p-1",
				"name":          "Hoodie",
				"price":         450.0,
				"category":      "winter",
				"hasImages":     true,
				"costPrice":     210.0,
				"internalNotes": "supplier delayed",
				"supplierId":    "s-9",
				"images": []any{
					map[string]any{"url": "https://cdn/x.jpg", "storageKey": "bucket/x"},
				},
				"variants": []any{
					map[string]any{"size": "L", "color": "أسود", "costPrice": 200.0, "warehouse": "B2"},
				},
			},
		},
	}

	got := r.Resolve(hits)
	require.Len(t, got.Items, 1)
	meta := got.Items[0].Metadata

	for k := range meta {
		_, ok := allowedMetadata[k]
		assert.True(t, ok, "unexpected key %q", k)
	}
	assert.NotContains(t, meta, "costPrice")
	assert.NotContains(t, meta, "internalNotes")

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	for _, leaked := range []string{"costPrice", "storageKey", "warehouse", "supplier"} {
		assert.NotContains(t, string(raw), leaked)
	}
	assert.Contains(t, string(raw), `"hasProducts":true`)
}

func TestResolver_TypedLists(t *testing.T) {
	tests := []struct {
		name   string
		images any
		want   []any
	}{
		{name: "string slice", images: []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, want: []any{"https://cdn/a.jpg", "https://cdn/b.jpg"}},
		{name: "any slice", images: []any{"https://cdn/a.jpg"}, want: []any{"https://cdn/a.jpg"}},
		{
			name:   "map slice",
			images: []map[string]any{{"url": "https://cdn/a.jpg", "storageKey": "bucket/a"}},
			want:   []any{map[string]any{"url": "https://cdn/a.jpg"}},
		},
		{name: "empty string slice", images: []string{}, want: nil},
		{name: "unsupported", images: "https://cdn/a.jpg", want: nil},
	}

	r := NewResolver(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve([]core.RawHit{{
				Type:     "product",
				Content:  "Hoodie",
				Metadata: map[string]any{"id": "p-1", "images": tt.images},
			}})
			require.Len(t, got.Items, 1)
			if tt.want == nil {
				assert.NotContains(t, got.Items[0].Metadata, "images")
				return
			}
			assert.Equal(t, tt.want, got.Items[0].Metadata["images"])
		})
	}
}

func TestResolver_StripsHTML(t *testing.T) {
	got := NewResolver(0).Resolve([]core.RawHit{
		{Type: "product", Content: "<p>Denim jacket</p><p>Sizes: S, M</p>"},
	})
	require.Len(t, got.Items, 1)
	assert.NotContains(t, got.Items[0].Content, "<p>")
	assert.Contains(t, got.Items[0].Content, "Denim jacket")
}

func TestRender(t *testing.T) {
	assert.Empty(t, Render(core.RagContext{}))

	rc := NewResolver(0).Resolve([]core.RawHit{
		{Type: "faq", Content: "We ship in 3 days"},
		{Type: "product", Content: "Hoodie", Metadata: map[string]any{"price": 450.0}},
	})
	out := Render(rc)

	assert.Less(t, strings.Index(out, "### Products"), strings.Index(out, "### FAQ"))
	assert.Contains(t, out, "[2] Hoodie")
	assert.Contains(t, out, `"price":450`)
	assert.Contains(t, out, "[1] We ship in 3 days")
}
