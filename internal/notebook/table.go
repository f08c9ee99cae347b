package notebook

import (
	"fmt"
	"math"
)

const (
	// NumChannels is the size of the channel axis: eight headstages plus the
	// global column.
	NumChannels = 9
	// NumHeadstages is the number of real amplifier channels.
	NumHeadstages = 8
	// GlobalChannel holds values that apply to every headstage.
	GlobalChannel = 8

	// identityFieldCount is the number of leading fields that identify the
	// sweep rather than a channel (sweep number, timestamps, entry source).
	identityFieldCount = 4
)

// Schema maps notebook field names to their column position.
type Schema struct {
	keys  []string
	index map[string]int
}

// NewSchema builds a Schema from the ordered field names. Duplicate names
// resolve to their first position.
func NewSchema(keys []string) *Schema {
	s := &Schema{
		keys:  append([]string(nil), keys...),
		index: make(map[string]int, len(keys)),
	}
	for i, k := range keys {
		if _, dup := s.index[k]; !dup {
			s.index[k] = i
		}
	}
	return s
}

// Keys returns the ordered field names. The slice must not be modified.
func (s *Schema) Keys() []string { return s.keys }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.keys) }

// Index returns the position of a field.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Row is one physical notebook row indexed as [field][channel].
type Row [][]float64

func (r Row) clone() Row {
	out := make(Row, len(r))
	for i, ch := range r {
		out[i] = append([]float64(nil), ch...)
	}
	return out
}

// overlay copies every non-NaN cell of src onto r.
func (r Row) overlay(src Row) {
	for f := range r {
		for c := range r[f] {
			if v := src[f][c]; !math.IsNaN(v) {
				r[f][c] = v
			}
		}
	}
}

// Table is the materialized raw notebook.
type Table struct {
	schema *Schema
	rows   []Row
}

// NewTable validates the row layout against the field names. Each row must
// have one entry per field and NumChannels entries per field.
func NewTable(keys []string, rows []Row) (*Table, error) {
	schema := NewSchema(keys)
	for i, row := range rows {
		if len(row) != schema.Len() {
			return nil, &SchemaError{Reason: fmt.Sprintf("row %d has %d fields, want %d", i, len(row), schema.Len())}
		}
		for f, ch := range row {
			if len(ch) != NumChannels {
				return nil, &SchemaError{Field: keys[f], Reason: fmt.Sprintf("row %d has %d channels, want %d", i, len(ch), NumChannels)}
			}
		}
	}
	return &Table{schema: schema, rows: rows}, nil
}

// FromFlat builds a Table from a row-major rows × fields × channels buffer.
func FromFlat(keys []string, values []float64, rows, channels int) (*Table, error) {
	if channels != NumChannels {
		return nil, &SchemaError{Reason: fmt.Sprintf("channel axis has %d entries, want %d", channels, NumChannels)}
	}
	fields := len(keys)
	if len(values) != rows*fields*channels {
		return nil, &SchemaError{Reason: fmt.Sprintf("value buffer has %d cells, want %d×%d×%d", len(values), rows, fields, channels)}
	}
	out := make([]Row, rows)
	for r := 0; r < rows; r++ {
		row := make(Row, fields)
		for f := 0; f < fields; f++ {
			start := (r*fields + f) * channels
			row[f] = values[start : start+channels : start+channels]
		}
		out[r] = row
	}
	return &Table{schema: NewSchema(keys), rows: out}, nil
}

// Schema returns the table's field mapping.
func (t *Table) Schema() *Schema { return t.schema }

// Len returns the number of physical rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns a physical row. The row must not be modified.
func (t *Table) Row(i int) Row { return t.rows[i] }
