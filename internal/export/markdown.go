package export

import (
	"fmt"
	"strings"

	"justdraft/internal/extract"
)

// Markdown renders the result using the fixed template of the brain.md
// artifact. Section headers are always present, bullets only when the
// corresponding list is non-empty.
func Markdown(result extract.Result) string {
	var sb strings.Builder
	sb.WriteString("# Brain Cleaner Results\n\n")

	sb.WriteString("## ✅ Tasks\n")
	for _, t := range result.Tasks {
		icon := "🔹"
		if t.Priority == extract.PriorityHigh {
			icon = "🔥"
		}
		fmt.Fprintf(&sb, "- [%s] %s %s", t.Category, t.Action, icon)
		if t.Deadline != nil && *t.Deadline != "" {
			fmt.Fprintf(&sb, " (📅 %s)", *t.Deadline)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n## 💡 Memos\n")
	for _, m := range result.Memos {
		fmt.Fprintf(&sb, "- %s\n", m.Content)
	}

	return sb.String()
}
