package export

import (
	"bytes"
	"encoding/json"

	"justdraft/internal/extract"
)

// JSON re-serializes the result with two-space indentation. Non-ASCII text
// is kept literal so Korean output stays readable in the artifact.
func JSON(result extract.Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
