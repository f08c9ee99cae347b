package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	kindAcquisition = "acquisition"
	kindStimulus    = "stimulus"
)

// Notebook reads the raw notebook table.
func (a *Archive) Notebook(ctx context.Context) (*NotebookData, error) {
	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT name FROM notebook_keys ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query notebook keys: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan notebook key: %w", err)
		}
		keys = append(keys, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notebook keys: %w", err)
	}

	var (
		nb    = NotebookData{Keys: keys}
		cells []byte
	)
	err = db.QueryRowContext(ctx, "SELECT rows, channels, cells FROM notebook WHERE id = 1").
		Scan(&nb.Rows, &nb.Channels, &cells)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("notebook", a.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}
	if nb.Values, err = decodeFloats(cells); err != nil {
		return nil, fmt.Errorf("decode notebook: %w", err)
	}
	return &nb, nil
}

// AcquisitionKeys lists the AD series keys in sorted order.
func (a *Archive) AcquisitionKeys(ctx context.Context) ([]string, error) {
	return a.seriesKeys(ctx, kindAcquisition)
}

// StimulusKeys lists the DA series keys in sorted order.
func (a *Archive) StimulusKeys(ctx context.Context) ([]string, error) {
	return a.seriesKeys(ctx, kindStimulus)
}

// Acquisition reads one AD series.
func (a *Archive) Acquisition(ctx context.Context, key string) (*Series, error) {
	return a.series(ctx, kindAcquisition, key)
}

// Stimulus reads one DA series.
func (a *Archive) Stimulus(ctx context.Context, key string) (*Series, error) {
	return a.series(ctx, kindStimulus, key)
}

// AcquisitionInfo reads the attributes of one AD series.
func (a *Archive) AcquisitionInfo(ctx context.Context, key string) (SeriesInfo, error) {
	return a.seriesInfo(ctx, kindAcquisition, key)
}

// StimulusInfo reads the attributes of one DA series.
func (a *Archive) StimulusInfo(ctx context.Context, key string) (SeriesInfo, error) {
	return a.seriesInfo(ctx, kindStimulus, key)
}

func (a *Archive) seriesKeys(ctx context.Context, kind string) ([]string, error) {
	db, err := a.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT key FROM series WHERE kind = ? ORDER BY key", kind)
	if err != nil {
		return nil, fmt.Errorf("query %s keys: %w", kind, err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan %s key: %w", kind, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (a *Archive) series(ctx context.Context, kind, key string) (*Series, error) {
	db, err := a.handle()
	if err != nil {
		return nil, err
	}
	var (
		s       Series
		samples []byte
	)
	err = db.QueryRowContext(ctx,
		"SELECT sample_interval, electrode_name, stimulus_description, samples FROM series WHERE kind = ? AND key = ?",
		kind, key,
	).Scan(&s.SampleInterval, &s.ElectrodeName, &s.StimulusDescription, &samples)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(kind, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", kind, key, err)
	}
	if s.Data, err = decodeFloats(samples); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", kind, key, err)
	}
	return &s, nil
}

func (a *Archive) seriesInfo(ctx context.Context, kind, key string) (SeriesInfo, error) {
	db, err := a.handle()
	if err != nil {
		return SeriesInfo{}, err
	}
	var info SeriesInfo
	err = db.QueryRowContext(ctx,
		"SELECT sample_interval, electrode_name, stimulus_description FROM series WHERE kind = ? AND key = ?",
		kind, key,
	).Scan(&info.SampleInterval, &info.ElectrodeName, &info.StimulusDescription)
	if errors.Is(err, sql.ErrNoRows) {
		return SeriesInfo{}, notFound(kind, key)
	}
	if err != nil {
		return SeriesInfo{}, fmt.Errorf("read %s %s attributes: %w", kind, key, err)
	}
	return info, nil
}

// ArchiveStats summarizes an archive without decoding sample data.
type ArchiveStats struct {
	NotebookRows int
	Sweeps       int
	Acquisitions int
	Stimuli      int
	Samples      int64
}

// Stats counts rows, sweeps, and series.
func (a *Archive) Stats(ctx context.Context) (ArchiveStats, error) {
	var stats ArchiveStats
	db, err := a.handle()
	if err != nil {
		return stats, err
	}
	err = db.QueryRowContext(ctx, "SELECT COALESCE((SELECT rows FROM notebook WHERE id = 1), 0)").Scan(&stats.NotebookRows)
	if err != nil {
		return stats, fmt.Errorf("count notebook rows: %w", err)
	}
	err = db.QueryRowContext(ctx, `SELECT
		COUNT(DISTINCT CASE WHEN kind = 'acquisition' THEN sweep END),
		COALESCE(SUM(kind = 'acquisition'), 0),
		COALESCE(SUM(kind = 'stimulus'), 0),
		COALESCE(SUM(sample_count), 0)
		FROM series`).Scan(&stats.Sweeps, &stats.Acquisitions, &stats.Stimuli, &stats.Samples)
	if err != nil {
		return stats, fmt.Errorf("count series: %w", err)
	}
	return stats, nil
}

// Metadata keys written by CreateArchive and Import.
const (
	MetaCreatedAt  = "created_at"
	MetaImportedAt = "imported_at"
	MetaSource     = "source"
)

// Meta returns the archive's metadata entries.
func (a *Archive) Meta(ctx context.Context) (map[string]string, error) {
	db, err := a.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM archive_meta")
	if err != nil {
		return nil, fmt.Errorf("query archive meta: %w", err)
	}
	defer rows.Close()
	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan archive meta: %w", err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}
