package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:     "plain text untouched",
			input:    "  Cotton shirt, sizes M and L  ",
			contains: []string{"Cotton shirt, sizes M and L"},
		},
		{
			name:        "paragraphs flattened",
			input:       "<p>Red cotton shirt</p><p>Sizes: M, L, XL</p>",
			contains:    []string{"Red cotton shirt", "Sizes: M, L, XL"},
			notContains: []string{"<p>", "</p>"},
		},
		{
			name:        "arabic content",
			input:       "<div>قميص قطن <span>أحمر</span></div>",
			contains:    []string{"قميص قطن", "أحمر"},
			notContains: []string{"<div>", "<span>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTMLToText(tt.input)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, got, s)
			}
		})
	}
}
