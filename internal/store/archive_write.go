package store

import (
	"context"
	"fmt"
	"time"

	"miesnwb/internal/logging"
)

// WriteNotebook replaces the notebook table.
func (a *Archive) WriteNotebook(ctx context.Context, nb *NotebookData) error {
	db, err := a.writable()
	if err != nil {
		return err
	}
	if want := nb.Rows * len(nb.Keys) * nb.Channels; len(nb.Values) != want {
		return fmt.Errorf("write notebook: %d values, want %d", len(nb.Values), want)
	}
	return retryOnBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin notebook tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM notebook_keys"); err != nil {
			return fmt.Errorf("clear notebook keys: %w", err)
		}
		for i, name := range nb.Keys {
			if _, err := tx.ExecContext(ctx, "INSERT INTO notebook_keys (position, name) VALUES (?, ?)", i, name); err != nil {
				return fmt.Errorf("insert notebook key %q: %w", name, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO notebook (id, rows, channels, cells) VALUES (1, ?, ?, ?)",
			nb.Rows, nb.Channels, encodeFloats(nb.Values),
		); err != nil {
			return fmt.Errorf("insert notebook: %w", err)
		}
		return tx.Commit()
	})
}

// WriteAcquisition stores an AD series.
func (a *Archive) WriteAcquisition(ctx context.Context, key string, s *Series) error {
	return a.writeSeries(ctx, kindAcquisition, key, s)
}

// WriteStimulus stores a DA series.
func (a *Archive) WriteStimulus(ctx context.Context, key string, s *Series) error {
	return a.writeSeries(ctx, kindStimulus, key, s)
}

func (a *Archive) writeSeries(ctx context.Context, kind, key string, s *Series) error {
	db, err := a.writable()
	if err != nil {
		return err
	}
	ck, err := ParseChannelKey(key)
	if err != nil {
		return err
	}
	return retryOnBusy(ctx, func() error {
		_, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO series
			(key, kind, sweep, channel, sample_interval, electrode_name, stimulus_description, sample_count, samples)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			key, kind, ck.Sweep, ck.Channel, s.SampleInterval, s.ElectrodeName, s.StimulusDescription,
			len(s.Data), encodeFloats(s.Data))
		if err != nil {
			return fmt.Errorf("insert %s %s: %w", kind, key, err)
		}
		return nil
	})
}

// SetMeta records a metadata entry.
func (a *Archive) SetMeta(ctx context.Context, key, value string) error {
	db, err := a.writable()
	if err != nil {
		return err
	}
	return retryOnBusy(ctx, func() error {
		_, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO archive_meta (key, value) VALUES (?, ?)", key, value)
		return err
	})
}

// Import copies everything src holds into the archive and records the source
// name and import time.
func (a *Archive) Import(ctx context.Context, src Reader, source string) (CopyStats, error) {
	started := time.Now()
	stats, err := Copy(ctx, a, src)
	if err != nil {
		return stats, err
	}
	if err := a.SetMeta(ctx, MetaSource, source); err != nil {
		return stats, fmt.Errorf("record source: %w", err)
	}
	if err := a.SetMeta(ctx, MetaImportedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return stats, fmt.Errorf("record import time: %w", err)
	}
	a.logger.Info("archive imported",
		logging.Archive(a.path),
		logging.String("source", source),
		logging.Int("notebook_rows", stats.NotebookRows),
		logging.Int("acquisitions", stats.Acquisitions),
		logging.Int("stimuli", stats.Stimuli),
		logging.Duration("elapsed", time.Since(started)))
	return stats, nil
}
