package notebook

import (
	"bytes"
	"encoding/json"
	"math"
)

// Fields holds one channel's reconciled notebook values keyed by field name.
// The zero Fields has no schema and reports every field as unset.
type Fields struct {
	schema *Schema
	values []float64
}

func columnFields(schema *Schema, row Row, channel int) Fields {
	values := make([]float64, len(row))
	for f := range row {
		values[f] = row[f][channel]
	}
	return Fields{schema: schema, values: values}
}

// Get returns the named value; a field missing from the schema is unset.
func (f Fields) Get(name string) Value {
	if f.schema == nil {
		return Unset
	}
	i, ok := f.schema.Index(name)
	if !ok {
		return Unset
	}
	return ValueOf(f.values[i])
}

// Has reports whether the schema carries the field at all.
func (f Fields) Has(name string) bool {
	if f.schema == nil {
		return false
	}
	_, ok := f.schema.Index(name)
	return ok
}

// Len returns the number of fields, set or not.
func (f Fields) Len() int { return len(f.values) }

// Each calls fn for every field in schema order until fn returns false.
func (f Fields) Each(fn func(name string, v Value) bool) {
	if f.schema == nil {
		return
	}
	for i, name := range f.schema.Keys() {
		if !fn(name, ValueOf(f.values[i])) {
			return
		}
	}
}

// Map copies the fields into a map.
func (f Fields) Map() map[string]Value {
	out := make(map[string]Value, len(f.values))
	f.Each(func(name string, v Value) bool {
		out[name] = v
		return true
	})
	return out
}

// Recorded reports whether any field other than the sweep identity fields
// and async sensor readings holds a value. Propagation copies those into
// every channel, so they say nothing about whether a headstage was in use.
func (f Fields) Recorded() bool {
	if f.schema == nil {
		return false
	}
	for i, name := range f.schema.Keys() {
		if i < identityFieldCount || IsAsyncSensorField(name) {
			continue
		}
		if !math.IsNaN(f.values[i]) {
			return true
		}
	}
	return false
}

// SetCount returns how many fields hold a value.
func (f Fields) SetCount() int {
	n := 0
	for _, v := range f.values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// MarshalJSON writes the fields as an object in schema order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	f.Each(func(name string, v Value) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		var key, val []byte
		if key, err = json.Marshal(name); err != nil {
			return false
		}
		if val, err = v.MarshalJSON(); err != nil {
			return false
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SweepEntry is the reconciled notebook record of one sweep: one Fields per
// channel, index 8 being the global column.
type SweepEntry struct {
	SweepID  int                 `json:"sweep_id"`
	Channels [NumChannels]Fields `json:"channels"`
}

// Headstage returns the fields of a real headstage (0-7).
func (e *SweepEntry) Headstage(h int) (Fields, bool) {
	if h < 0 || h >= NumHeadstages {
		return Fields{}, false
	}
	return e.Channels[h], true
}

// Global returns the global column.
func (e *SweepEntry) Global() Fields {
	return e.Channels[GlobalChannel]
}

// Notebook maps sweep ids to reconciled entries, preserving the order in which
// sweeps first appear in the table.
type Notebook struct {
	schema  *Schema
	ids     []int
	entries map[int]*SweepEntry
}

// Schema returns the field mapping shared by all entries.
func (n *Notebook) Schema() *Schema { return n.schema }

// Len returns the number of sweeps.
func (n *Notebook) Len() int { return len(n.ids) }

// SweepIDs returns the sweep ids in table order.
func (n *Notebook) SweepIDs() []int {
	return append([]int(nil), n.ids...)
}

// Sweep returns the entry for a sweep id.
func (n *Notebook) Sweep(id int) (*SweepEntry, bool) {
	e, ok := n.entries[id]
	return e, ok
}

// Entries returns every entry in table order.
func (n *Notebook) Entries() []*SweepEntry {
	out := make([]*SweepEntry, 0, len(n.ids))
	for _, id := range n.ids {
		out = append(out, n.entries[id])
	}
	return out
}
