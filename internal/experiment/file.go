package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"miesnwb/internal/logging"
	"miesnwb/internal/notebook"
	"miesnwb/internal/store"
)

// File is one recording file. It acquires its store handle on first use and
// again after Close.
type File struct {
	name     string
	opener   store.Opener
	logger   *slog.Logger
	required []string

	mu         sync.Mutex
	reader     store.Reader
	generation uint64
	table      *notebook.Table
	result     *notebook.Result
	sweepIDs   []int
	sweeps     map[int]*Sweep
}

// Option configures a File.
type Option func(*File)

// WithLogger sets the logger for resolution warnings and reconciliation
// summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(f *File) {
		f.logger = logger
	}
}

// WithName sets the name used in logs, usually the archive path.
func WithName(name string) Option {
	return func(f *File) {
		f.name = name
	}
}

// WithRequiredFields adds notebook fields whose absence fails reconciliation.
func WithRequiredFields(names ...string) Option {
	return func(f *File) {
		f.required = append(f.required, names...)
	}
}

// Open returns a File backed by opener. No I/O happens until first use.
func Open(opener store.Opener, opts ...Option) *File {
	f := &File{opener: opener, sweeps: make(map[int]*Sweep)}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "experiment")
	if f.name != "" {
		f.logger = f.logger.With(logging.Archive(f.name))
	}
	return f
}

// ArchiveOpener opens the SQLite archive at path.
func ArchiveOpener(path string, opts ...store.ArchiveOption) store.Opener {
	return func(ctx context.Context) (store.Reader, error) {
		return store.OpenArchive(ctx, path, opts...)
	}
}

// ReaderOpener hands out an already open reader once. After it is closed the
// File cannot reacquire it.
func ReaderOpener(r store.Reader) store.Opener {
	var used bool
	return func(context.Context) (store.Reader, error) {
		if used {
			return nil, store.ErrClosed
		}
		used = true
		return r, nil
	}
}

// Name returns the name given with WithName.
func (f *File) Name() string { return f.name }

// Close releases the store handle. Reconciled metadata is kept; traces read
// through the released handle are reloaded on next access.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reader == nil {
		return nil
	}
	err := f.reader.Close()
	f.reader = nil
	f.logger.Debug("store handle released", logging.Int("generation", int(f.generation)))
	return err
}

// handle returns the current reader and its generation, opening a new one if
// needed. Callers hold f.mu.
func (f *File) handle(ctx context.Context) (store.Reader, uint64, error) {
	if f.reader != nil {
		return f.reader, f.generation, nil
	}
	if f.opener == nil {
		return nil, 0, errors.New("file has no store opener")
	}
	r, err := f.opener(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("open store: %w", err)
	}
	f.reader = r
	f.generation++
	f.logger.Debug("store handle acquired", logging.Int("generation", int(f.generation)))
	return r, f.generation, nil
}

// Reader returns the live store handle, reopening it if it was closed.
func (f *File) Reader(ctx context.Context) (store.Reader, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle(ctx)
}

// Generation counts store handles acquired so far.
func (f *File) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}

// Table materializes the raw notebook table. It is read once per File.
func (f *File) Table(ctx context.Context) (*notebook.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tableLocked(ctx)
}

func (f *File) tableLocked(ctx context.Context) (*notebook.Table, error) {
	if f.table != nil {
		return f.table, nil
	}
	r, _, err := f.handle(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := r.Notebook(ctx)
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}
	table, err := notebook.FromFlat(raw.Keys, raw.Values, raw.Rows, raw.Channels)
	if err != nil {
		return nil, err
	}
	f.table = table
	return table, nil
}

func (f *File) reconciled(ctx context.Context) (*notebook.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result != nil {
		return f.result, nil
	}
	table, err := f.tableLocked(ctx)
	if err != nil {
		return nil, err
	}
	rec := notebook.NewReconciler(
		notebook.WithLogger(f.logger),
		notebook.WithRequiredFields(f.required...),
	)
	result, err := rec.Reconcile(table)
	if err != nil {
		return nil, err
	}
	f.result = result
	return result, nil
}

// Notebook returns the reconciled per-sweep notebook.
func (f *File) Notebook(ctx context.Context) (*notebook.Notebook, error) {
	res, err := f.reconciled(ctx)
	if err != nil {
		return nil, err
	}
	return res.Notebook, nil
}

// TestPulseEntries returns the standalone test pulse blocks in table order.
func (f *File) TestPulseEntries(ctx context.Context) ([]notebook.TestPulseBlock, error) {
	res, err := f.reconciled(ctx)
	if err != nil {
		return nil, err
	}
	return res.TestPulses, nil
}

// SkippedRows counts notebook rows that were neither sweep nor test pulse.
func (f *File) SkippedRows(ctx context.Context) (int, error) {
	res, err := f.reconciled(ctx)
	if err != nil {
		return 0, err
	}
	return res.Skipped, nil
}

// SweepIDs lists the sweeps that have acquisition data, ascending.
func (f *File) SweepIDs(ctx context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sweepIDs != nil {
		return append([]int(nil), f.sweepIDs...), nil
	}
	r, _, err := f.handle(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := r.AcquisitionKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list acquisitions: %w", err)
	}
	seen := make(map[int]struct{})
	ids := []int{}
	for _, key := range keys {
		ck, err := store.ParseChannelKey(key)
		if err != nil {
			f.logger.Debug("ignoring acquisition key", logging.String("key", key), logging.Error(err))
			continue
		}
		if _, ok := seen[ck.Sweep]; ok {
			continue
		}
		seen[ck.Sweep] = struct{}{}
		ids = append(ids, ck.Sweep)
	}
	sort.Ints(ids)
	f.sweepIDs = ids
	return append([]int(nil), ids...), nil
}

// Sweeps builds every sweep in ascending id order.
func (f *File) Sweeps(ctx context.Context) ([]*Sweep, error) {
	ids, err := f.SweepIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Sweep, 0, len(ids))
	for _, id := range ids {
		s, err := f.Sweep(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Sweep builds, once, the sweep with the given id. A sweep without
// acquisition data is a store.KeyError.
func (f *File) Sweep(ctx context.Context, id int) (*Sweep, error) {
	f.mu.Lock()
	if s, ok := f.sweeps[id]; ok {
		f.mu.Unlock()
		return s, nil
	}
	f.mu.Unlock()

	nb, err := f.Notebook(ctx)
	if err != nil {
		return nil, err
	}
	s, err := buildSweep(ctx, f, nb, id)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.sweeps[id]; ok {
		return existing, nil
	}
	f.sweeps[id] = s
	return s, nil
}

func sweepNotFound(id int) error {
	return &store.KeyError{Kind: "sweep", Key: strconv.Itoa(id)}
}
