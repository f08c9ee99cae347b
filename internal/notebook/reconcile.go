package notebook

import (
	"log/slog"
	"math"

	"miesnwb/internal/logging"
)

// Result is the outcome of reconciling one table.
type Result struct {
	Notebook   *Notebook
	TestPulses []TestPulseBlock
	// Skipped counts rows that were neither sweep nor test pulse records.
	Skipped int
}

// Reconciler turns a raw notebook table into per-sweep entries and test
// pulse blocks.
type Reconciler struct {
	logger   *slog.Logger
	required []string
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for reconciliation summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithRequiredFields adds field names whose absence is a SchemaError.
func WithRequiredFields(names ...string) Option {
	return func(r *Reconciler) {
		r.required = append(r.required, names...)
	}
}

// NewReconciler builds a Reconciler.
func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "notebook")
	return r
}

// Reconcile classifies every row, merges the rows of each sweep and each test
// pulse pair, and applies the post-merge propagation rules to every sweep.
// The table is not modified.
func (r *Reconciler) Reconcile(t *Table) (*Result, error) {
	schema := t.Schema()
	cols, err := ResolveColumns(schema, r.required...)
	if err != nil {
		return nil, err
	}

	var (
		order   []int
		merged  = make(map[int]Row)
		blocks  []TestPulseBlock
		skipped int
	)

	for i := 0; i < len(t.rows); {
		kind, span := Classify(t.rows, i, cols)
		switch kind {
		case TestPulseRecord:
			blocks = append(blocks, newTestPulseBlock(schema, cols, t.rows[i], t.rows[i+1], len(blocks), i))
		case SweepRecord:
			id := int(t.rows[i][cols.SweepNum][0])
			if acc, ok := merged[id]; ok {
				acc.overlay(t.rows[i])
			} else {
				merged[id] = t.rows[i].clone()
				order = append(order, id)
			}
		default:
			skipped++
		}
		i += span
	}

	nb := &Notebook{
		schema:  schema,
		ids:     order,
		entries: make(map[int]*SweepEntry, len(order)),
	}
	for _, id := range order {
		row := merged[id]
		propagate(schema, row)
		entry := &SweepEntry{SweepID: id}
		for c := 0; c < NumChannels; c++ {
			entry.Channels[c] = columnFields(schema, row, c)
		}
		nb.entries[id] = entry
	}

	r.logger.Debug("notebook reconciled",
		logging.Int("rows", t.Len()),
		logging.Int("fields", schema.Len()),
		logging.Int("sweeps", nb.Len()),
		logging.Int("test_pulse_blocks", len(blocks)),
		logging.Int("skipped_rows", skipped),
		logging.Bool("entry_source_type", cols.EntrySourceType >= 0))

	return &Result{Notebook: nb, TestPulses: blocks, Skipped: skipped}, nil
}

// propagate applies, in order: global column overrides, broadcast of the
// sweep identity fields from channel 0, and broadcast of async sensor fields
// from channel 0.
func propagate(schema *Schema, row Row) {
	for f := range row {
		if g := row[f][GlobalChannel]; !math.IsNaN(g) {
			fill(row[f], g)
		}
	}
	for f := 0; f < identityFieldCount && f < len(row); f++ {
		fill(row[f], row[f][0])
	}
	for f, name := range schema.Keys() {
		if IsAsyncSensorField(name) {
			fill(row[f], row[f][0])
		}
	}
}

func fill(channels []float64, v float64) {
	for c := range channels {
		channels[c] = v
	}
}
