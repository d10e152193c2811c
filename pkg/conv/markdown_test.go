package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "arabic plain text", input: "أهلاً بيك", want: "أهلاً بيك\n"},
		{name: "bold", input: "**رقم الطلب**", want: "<strong>رقم الطلب</strong>\n"},
		{name: "italic", input: "*italic*", want: "<em>italic</em>\n"},
		{name: "underline passes through", input: "<u>underline</u>", want: "<u>underline</u>\n"},
		{name: "strikethrough", input: "~~150~~", want: "<del>150</del>\n"},
		{name: "inline code", input: "`ORD-1`", want: "<code>ORD-1</code>\n"},
		{name: "blockquote", input: "> quote", want: "<blockquote>\nquote\n</blockquote>\n"},
		{name: "link keeps href only", input: "[shop](https://example.com)", want: "<a href=\"https://example.com\">shop</a>\n"},
		{name: "header flattened", input: "# ملخص الطلب", want: "ملخص الطلب\n"},
		{name: "script removed", input: "<script>alert('xss')</script>", want: "\n"},
		{
			name:  "mixed",
			input: "**Total** is *250* EGP",
			want:  "<strong>Total</strong> is <em>250</em> EGP\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarkdownToTelegramHTML([]byte(tt.input)))
		})
	}
}

func TestMarkdownToTelegramHTML_Lists(t *testing.T) {
	got := MarkdownToTelegramHTML([]byte("- تيشيرت أسود\n- بنطلون جينز\n"))

	assert.Contains(t, got, "• تيشيرت أسود")
	assert.Contains(t, got, "• بنطلون جينز")
	assert.NotContains(t, got, "<li>")
	assert.NotContains(t, got, "<ul>")
}
