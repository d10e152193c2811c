package conv

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var (
	mdExtensions = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	mdHTMLFlags  = html.CommonFlags | html.HrefTargetBlank

	// telegramPolicy keeps only the tags Telegram's HTML parse mode accepts:
	// https://core.telegram.org/bots/api#html-style
	telegramPolicy = newTelegramPolicy()

	// Telegram has no list markup; items become bullet lines.
	listMarkup = strings.NewReplacer(
		"<li>", "• ",
		"</li>", "",
		"<ul>\n", "", "</ul>\n", "",
		"<ol>\n", "", "</ol>\n", "",
	)
)

func newTelegramPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre", "blockquote")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("class").OnElements("code")
	return p
}

// MarkdownToTelegramHTML renders model replies, which are written in
// Markdown, into the HTML subset Telegram accepts.
func MarkdownToTelegramHTML(md []byte) string {
	p := parser.NewWithExtensions(mdExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: mdHTMLFlags})
	rendered := string(markdown.Render(p.Parse(md), renderer))

	return telegramPolicy.Sanitize(listMarkup.Replace(rendered))
}
