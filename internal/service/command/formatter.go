package command

import (
	"fmt"
	"strings"
)

// ResponseFormatter renders command replies as Markdown. Transports convert
// it to their own markup, so customer text quoted back must be escaped.
type ResponseFormatter struct{}

func NewResponseFormatter() *ResponseFormatter {
	return &ResponseFormatter{}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"~", `\~`,
)

// Escape neutralizes Markdown in text the customer wrote.
func Escape(s string) string {
	return markdownEscaper.Replace(s)
}

func (f *ResponseFormatter) Heading(title string) string {
	return fmt.Sprintf("**%s**\n", title)
}

func (f *ResponseFormatter) Done(message string) string {
	return fmt.Sprintf("✅ %s\n", message)
}

func (f *ResponseFormatter) Field(label, value string) string {
	return fmt.Sprintf("%s: `%s`\n", label, value)
}

func (f *ResponseFormatter) Usage(command string, examples ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Usage**: `%s`\n", command)
	for _, ex := range examples {
		fmt.Fprintf(&sb, "• `%s`\n", ex)
	}
	return sb.String()
}

func (f *ResponseFormatter) Bullets(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		fmt.Fprintf(&sb, "• %s\n", item)
	}
	return sb.String()
}

func (f *ResponseFormatter) Note(text string) string {
	return fmt.Sprintf("_%s_\n", text)
}

func (f *ResponseFormatter) Join(sections ...string) string {
	return strings.Join(sections, "\n")
}
