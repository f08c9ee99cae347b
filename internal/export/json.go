package export

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON encodes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}
