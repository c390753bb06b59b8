package export

import (
	"fmt"
	"os"
	"path/filepath"

	"justdraft/internal/extract"
)

// Fixed artifact names. Downstream tooling depends on these.
const (
	JSONFile     = "brain.json"
	TasksFile    = "tasks.csv"
	MemosFile    = "memos.csv"
	MarkdownFile = "brain.md"
)

// WriteFiles writes every export artifact for the result into dir,
// creating it if needed, and returns the paths written. CSV artifacts
// are skipped when their list is empty.
func WriteFiles(dir string, result extract.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	data, err := JSON(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	if err := write(JSONFile, data); err != nil {
		return nil, err
	}

	if csv := TasksCSV(result.Tasks); csv != "" {
		if err := write(TasksFile, []byte(csv)); err != nil {
			return nil, err
		}
	}
	if csv := MemosCSV(result.Memos); csv != "" {
		if err := write(MemosFile, []byte(csv)); err != nil {
			return nil, err
		}
	}

	if err := write(MarkdownFile, []byte(Markdown(result))); err != nil {
		return nil, err
	}
	return written, nil
}
