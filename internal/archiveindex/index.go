package archiveindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"miesnwb/internal/logging"
)

// Entry summarizes one archive.
type Entry struct {
	Path         string         `json:"path"`
	Source       string         `json:"source,omitempty"`
	Size         int64          `json:"size"`
	ModTime      time.Time      `json:"mod_time"`
	NotebookRows int            `json:"notebook_rows"`
	SkippedRows  int            `json:"skipped_rows"`
	Sweeps       int            `json:"sweeps"`
	Recordings   int            `json:"recordings"`
	Failures     int            `json:"failures"`
	TestPulses   int            `json:"test_pulses"`
	Samples      int64          `json:"samples"`
	Headstages   []int          `json:"headstages"`
	ClampModes   map[string]int `json:"clamp_modes,omitempty"`
	FirstSweepAt time.Time      `json:"first_sweep_at,omitzero"`
	LastSweepAt  time.Time      `json:"last_sweep_at,omitzero"`
	ScannedAt    time.Time      `json:"scanned_at"`
}

// Current reports whether the entry still describes a file with the given
// size and modification time.
func (e Entry) Current(info fs.FileInfo) bool {
	return info != nil && e.Size == info.Size() && e.ModTime.Equal(info.ModTime())
}

// Index provides thread-safe access to the archive index.
type Index struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Entry // keyed by archive path
}

// NewIndex creates an index backed by the file at path. If path is empty the
// index is kept in memory only. The file is created lazily on first Store.
func NewIndex(path string, logger *slog.Logger) *Index {
	logger = logging.NewComponentLogger(logger, "archiveindex")

	idx := &Index{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}

	if path == "" {
		return idx
	}

	if err := idx.load(); err != nil {
		logger.Warn("failed to load archive index",
			logging.String(logging.FieldEventType, "archive_index_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "index will start empty"),
			logging.String(logging.FieldImpact, "every archive is summarized again on the next scan"))
	}

	return idx
}

// Path returns the backing file, or "" for an in-memory index.
func (idx *Index) Path() string { return idx.path }

// Lookup returns the entry for an archive path.
func (idx *Index) Lookup(path string) (Entry, bool) {
	path = cleanPath(path)
	if path == "" {
		return Entry{}, false
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entry, found := idx.entries[path]
	return entry, found
}

// Store adds or updates an entry and persists the index.
func (idx *Index) Store(entry Entry) error {
	entry.Path = cleanPath(entry.Path)
	if entry.Path == "" {
		return errors.New("archive path cannot be empty")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries[entry.Path] = entry

	if err := idx.save(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	idx.logger.Debug("indexed archive",
		logging.Archive(entry.Path),
		logging.Int("sweeps", entry.Sweeps),
		logging.Int("test_pulses", entry.TestPulses),
		logging.Int("failures", entry.Failures))

	return nil
}

// Remove deletes the entry for path and persists the change.
func (idx *Index) Remove(path string) error {
	path = cleanPath(path)
	if path == "" {
		return errors.New("archive path cannot be empty")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.entries[path]; !exists {
		return fmt.Errorf("archive %q not found in index", path)
	}

	delete(idx.entries, path)

	if err := idx.save(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	idx.logger.Debug("removed archive from index", logging.Archive(path))
	return nil
}

// List returns all entries sorted by path.
func (idx *Index) List() []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.sorted()
}

// Clear removes all entries and persists the empty index.
func (idx *Index) Clear() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = make(map[string]Entry)

	if err := idx.save(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	idx.logger.Debug("cleared archive index")
	return nil
}

// Count returns the number of entries.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

func (idx *Index) sorted() []Entry {
	entries := make([]Entry, 0, len(idx.entries))
	for _, entry := range idx.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// load reads the index from disk into memory.
func (idx *Index) load() error {
	data, err := os.ReadFile(idx.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read index file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse index file: %w", err)
	}

	idx.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if path := cleanPath(entry.Path); path != "" {
			entry.Path = path
			idx.entries[path] = entry
		}
	}

	idx.logger.Debug("loaded archive index",
		logging.Int("entry_count", len(idx.entries)),
		logging.String("path", idx.path))

	return nil
}

// save writes the index to disk atomically. Callers hold idx.mu.
func (idx *Index) save() error {
	if idx.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(idx.sorted(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := idx.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, idx.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}
