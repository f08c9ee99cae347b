package testsupport

import (
	"math"
	"testing"

	"miesnwb/internal/notebook"
)

// DefaultKeys is a compact field list in the modern layout: the four sweep
// identity fields first, then per-channel settings, test pulse results, and
// one async sensor.
var DefaultKeys = []string{
	notebook.FieldSweepNum,
	notebook.FieldTimeStamp,
	"TimeStampSinceIgorEpochUTC",
	notebook.FieldEntrySourceType,
	notebook.FieldClampMode,
	notebook.FieldHoldingPotential,
	notebook.FieldHoldingCurrent,
	notebook.FieldBridgeBalanceOn,
	notebook.FieldBridgeBalance,
	notebook.FieldLPFCutoff,
	notebook.FieldPipetteOffset,
	notebook.FieldTPInsert,
	notebook.FieldDelayOnsetAuto,
	notebook.FieldDelayOnsetUser,
	notebook.FieldDelayTermination,
	notebook.FieldTPBaselineVm,
	notebook.FieldTPBaselinePA,
	notebook.FieldTPPeakResistance,
	notebook.FieldTPSteadyResistance,
	notebook.FieldTPBaselineFraction,
	notebook.FieldTPAmplitudeVC,
	notebook.FieldTPAmplitudeIC,
	notebook.FieldTPPulseDuration,
	"Async AD 0 [Temperature]",
}

// LegacyKeys mirrors DefaultKeys for files written before EntrySourceType
// existed.
var LegacyKeys = func() []string {
	keys := append([]string(nil), DefaultKeys...)
	keys[3] = "Repeated Acq Cycle ID"
	return keys
}()

// Cells assigns values to a row: field name → channel → value. Cells not
// mentioned are NaN.
type Cells map[string]map[int]float64

// At sets a single channel.
func At(channel int, v float64) map[int]float64 {
	return map[int]float64{channel: v}
}

// Global sets the global column.
func Global(v float64) map[int]float64 {
	return At(notebook.GlobalChannel, v)
}

// Headstages sets the same value on the given headstages.
func Headstages(v float64, hs ...int) map[int]float64 {
	out := make(map[int]float64, len(hs))
	for _, h := range hs {
		out[h] = v
	}
	return out
}

// NotebookBuilder accumulates raw notebook rows for tests.
type NotebookBuilder struct {
	keys []string
	rows []notebook.Row
}

// NewNotebookBuilder starts a table with the given keys, or DefaultKeys.
func NewNotebookBuilder(keys ...string) *NotebookBuilder {
	if len(keys) == 0 {
		keys = DefaultKeys
	}
	return &NotebookBuilder{keys: append([]string(nil), keys...)}
}

// Keys returns the builder's field names.
func (b *NotebookBuilder) Keys() []string { return b.keys }

// Add appends one physical row. Unknown field names panic so typos surface
// immediately in tests.
func (b *NotebookBuilder) Add(cells Cells) *NotebookBuilder {
	index := make(map[string]int, len(b.keys))
	for i, k := range b.keys {
		index[k] = i
	}
	row := make(notebook.Row, len(b.keys))
	for f := range row {
		row[f] = make([]float64, notebook.NumChannels)
		for c := range row[f] {
			row[f][c] = math.NaN()
		}
	}
	for name, channels := range cells {
		f, ok := index[name]
		if !ok {
			panic("testsupport: unknown notebook field " + name)
		}
		for c, v := range channels {
			row[f][c] = v
		}
	}
	b.rows = append(b.rows, row)
	return b
}

// SweepRow appends a sweep-origin row in the modern layout. Extra cells are
// merged in.
func (b *NotebookBuilder) SweepRow(sweep int, timestamp float64, extra Cells) *NotebookBuilder {
	cells := Cells{
		notebook.FieldSweepNum:  At(0, float64(sweep)),
		notebook.FieldTimeStamp: At(0, timestamp),
	}
	if b.hasKey(notebook.FieldEntrySourceType) {
		cells[notebook.FieldEntrySourceType] = At(0, 0)
	}
	for k, v := range extra {
		cells[k] = v
	}
	return b.Add(cells)
}

// TestPulseRows appends the two rows of a standalone test pulse. first holds
// the measured results, second the stimulus parameters. In the modern layout
// both rows carry a nonzero EntrySourceType.
func (b *NotebookBuilder) TestPulseRows(timestamp float64, first, second Cells) *NotebookBuilder {
	head := Cells{notebook.FieldTimeStamp: At(0, timestamp)}
	tail := Cells{}
	if b.hasKey(notebook.FieldEntrySourceType) {
		head[notebook.FieldEntrySourceType] = At(0, 1)
		tail[notebook.FieldEntrySourceType] = At(0, 1)
	}
	for k, v := range first {
		head[k] = v
	}
	for k, v := range second {
		tail[k] = v
	}
	return b.Add(head).Add(tail)
}

// Rows returns the accumulated rows.
func (b *NotebookBuilder) Rows() []notebook.Row { return b.rows }

// Table builds a notebook.Table or fails the test.
func (b *NotebookBuilder) Table(t testing.TB) *notebook.Table {
	t.Helper()
	table, err := notebook.NewTable(b.keys, b.rows)
	if err != nil {
		t.Fatalf("notebook.NewTable: %v", err)
	}
	return table
}

// Flat returns the rows as a row-major rows × fields × channels buffer.
func (b *NotebookBuilder) Flat() []float64 {
	out := make([]float64, 0, len(b.rows)*len(b.keys)*notebook.NumChannels)
	for _, row := range b.rows {
		for _, ch := range row {
			out = append(out, ch...)
		}
	}
	return out
}

func (b *NotebookBuilder) hasKey(name string) bool {
	for _, k := range b.keys {
		if k == name {
			return true
		}
	}
	return false
}
