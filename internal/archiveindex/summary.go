package archiveindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"miesnwb/internal/experiment"
	"miesnwb/internal/logging"
	"miesnwb/internal/store"
)

// Summarize opens the archive at path and reconciles it into an Entry.
// Recordings that fail to resolve are counted, not returned as errors.
func Summarize(ctx context.Context, path string, logger *slog.Logger, required ...string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("stat archive: %w", err)
	}

	archive, err := store.OpenArchive(ctx, path, store.WithArchiveLogger(logger))
	if err != nil {
		return Entry{}, err
	}
	defer archive.Close()
	file := experiment.Open(experiment.ReaderOpener(archive),
		experiment.WithName(filepath.Base(path)),
		experiment.WithLogger(logger),
		experiment.WithRequiredFields(required...))
	defer file.Close()

	stats, err := archive.Stats(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("archive stats: %w", err)
	}
	meta, err := archive.Meta(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("archive metadata: %w", err)
	}

	entry := Entry{
		Path:         path,
		Source:       meta[store.MetaSource],
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		NotebookRows: stats.NotebookRows,
		Samples:      stats.Samples,
		ClampModes:   make(map[string]int),
		ScannedAt:    time.Now().UTC(),
	}

	blocks, err := file.TestPulseEntries(ctx)
	if err != nil {
		return Entry{}, err
	}
	entry.TestPulses = len(blocks)
	if entry.SkippedRows, err = file.SkippedRows(ctx); err != nil {
		return Entry{}, err
	}

	sweeps, err := file.Sweeps(ctx)
	if err != nil {
		return Entry{}, err
	}
	headstages := make(map[int]struct{})
	for _, sweep := range sweeps {
		entry.Sweeps++
		entry.Failures += len(sweep.Failures())
		if at := sweep.StartTime(); !at.IsZero() {
			if entry.FirstSweepAt.IsZero() || at.Before(entry.FirstSweepAt) {
				entry.FirstSweepAt = at
			}
			if at.After(entry.LastSweepAt) {
				entry.LastSweepAt = at
			}
		}
		for _, rec := range sweep.Recordings() {
			entry.Recordings++
			entry.ClampModes[rec.ClampMode().String()]++
			headstages[rec.Headstage] = struct{}{}
		}
	}
	entry.Headstages = make([]int, 0, len(headstages))
	for h := range headstages {
		entry.Headstages = append(entry.Headstages, h)
	}
	sort.Ints(entry.Headstages)

	logging.NewComponentLogger(logger, "archiveindex").Debug("archive summarized",
		logging.Archive(path),
		logging.Int("sweeps", entry.Sweeps),
		logging.Int("recordings", entry.Recordings),
		logging.Int("failures", entry.Failures))
	return entry, nil
}
