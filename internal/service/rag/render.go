package rag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandevgo/tuskagent/internal/core"
)

var sectionTitles = map[core.HitType]string{
	core.HitProduct: "### Products",
	core.HitFAQ:     "### FAQ",
	core.HitPolicy:  "### Store Policies",
}

// Render formats the context as prompt text grouped by hit type. It
// returns an empty string when there is nothing to show.
func Render(rc core.RagContext) string {
	if !rc.HasData() {
		return ""
	}

	var sb strings.Builder
	for _, typ := range []core.HitType{core.HitProduct, core.HitFAQ, core.HitPolicy} {
		var lines []string
		for _, item := range rc.Items {
			if item.Type != typ {
				continue
			}
			line := fmt.Sprintf("[%d] %s", item.Index, item.Content)
			if len(item.Metadata) > 0 {
				if meta, err := json.Marshal(item.Metadata); err == nil {
					line += "\n    details: " + string(meta)
				}
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}

		sb.WriteString("\n")
		sb.WriteString(sectionTitles[typ])
		sb.WriteString("\n")
		sb.WriteString(strings.Join(lines, "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}
