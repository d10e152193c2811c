package conv

import (
	"strings"

	"github.com/inbucket/html2text"
)

// HTMLToText flattens rich-text markup (product descriptions, FAQ
// answers) into plain text. Input without tags is returned trimmed.
func HTMLToText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}

	text, err := html2text.FromString(s, html2text.Options{
		OmitLinks:    true,
		PrettyTables: true,
	})
	if err != nil {
		return s
	}
	return strings.TrimSpace(text)
}
