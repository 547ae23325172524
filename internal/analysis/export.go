package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vinodismyname/sheetlens/internal/table"
)

// ExportJSON serializes the working subset as an indented JSON array. Field
// order follows each row's insertion order; there is no envelope.
func ExportJSON(subset table.Dataset) ([]byte, error) {
	rows := []*table.Row(subset)
	if rows == nil {
		rows = []*table.Row{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return nil, fmt.Errorf("analysis: export json: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
