package export

import (
	"encoding/csv"
	"strings"

	"justdraft/internal/extract"
)

// bom marks the CSV artifacts as UTF-8 so spreadsheet tools do not
// mangle non-Latin scripts.
const bom = "\uFEFF"

// TasksCSV renders tasks as a header plus one row per task. An empty
// slice yields an empty string, meaning no artifact should be written.
func TasksCSV(tasks []extract.Task) string {
	if len(tasks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(bom)
	w := csv.NewWriter(&sb)
	w.Write([]string{"category", "action", "priority", "deadline"})
	for _, t := range tasks {
		deadline := ""
		if t.Deadline != nil {
			deadline = *t.Deadline
		}
		w.Write([]string{t.Category, t.Action, t.Priority, deadline})
	}
	w.Flush()
	return sb.String()
}

// MemosCSV renders memos as a single-column CSV, empty string when there
// are no memos.
func MemosCSV(memos []extract.Memo) string {
	if len(memos) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(bom)
	w := csv.NewWriter(&sb)
	w.Write([]string{"content"})
	for _, m := range memos {
		w.Write([]string{m.Content})
	}
	w.Flush()
	return sb.String()
}
