package store

import (
	"context"
	"fmt"
	"sort"
)

// NotebookData is the raw notebook table as stored: ordered field names and a
// row-major Rows × len(Keys) × Channels value buffer with NaN for unset cells.
type NotebookData struct {
	Keys     []string
	Values   []float64
	Rows     int
	Channels int
}

// Series is one raw sample array. SampleInterval is in seconds.
type Series struct {
	Data                []float64
	SampleInterval      float64
	ElectrodeName       string
	StimulusDescription string
}

// SeriesInfo holds the attributes of a series without its samples.
type SeriesInfo struct {
	SampleInterval      float64
	ElectrodeName       string
	StimulusDescription string
}

// Info returns the attributes of s.
func (s *Series) Info() SeriesInfo {
	return SeriesInfo{
		SampleInterval:      s.SampleInterval,
		ElectrodeName:       s.ElectrodeName,
		StimulusDescription: s.StimulusDescription,
	}
}

// Reader exposes a recording file. Returned values must not be modified.
// The Info methods never load sample data.
type Reader interface {
	Notebook(ctx context.Context) (*NotebookData, error)
	AcquisitionKeys(ctx context.Context) ([]string, error)
	Acquisition(ctx context.Context, key string) (*Series, error)
	AcquisitionInfo(ctx context.Context, key string) (SeriesInfo, error)
	StimulusKeys(ctx context.Context) ([]string, error)
	Stimulus(ctx context.Context, key string) (*Series, error)
	StimulusInfo(ctx context.Context, key string) (SeriesInfo, error)
	Close() error
}

// Opener produces a fresh Reader. The experiment layer calls it again after a
// handle has been closed.
type Opener func(ctx context.Context) (Reader, error)

// Writer receives the contents of a recording file.
type Writer interface {
	WriteNotebook(ctx context.Context, nb *NotebookData) error
	WriteAcquisition(ctx context.Context, key string, s *Series) error
	WriteStimulus(ctx context.Context, key string, s *Series) error
}

// CopyStats counts what Copy transferred.
type CopyStats struct {
	NotebookRows int
	Acquisitions int
	Stimuli      int
}

// Copy transfers the notebook and every series from src to dst in key order.
func Copy(ctx context.Context, dst Writer, src Reader) (CopyStats, error) {
	var stats CopyStats
	nb, err := src.Notebook(ctx)
	if err != nil {
		return stats, fmt.Errorf("read notebook: %w", err)
	}
	if err := dst.WriteNotebook(ctx, nb); err != nil {
		return stats, fmt.Errorf("write notebook: %w", err)
	}
	stats.NotebookRows = nb.Rows

	acqKeys, err := src.AcquisitionKeys(ctx)
	if err != nil {
		return stats, fmt.Errorf("list acquisitions: %w", err)
	}
	for _, key := range acqKeys {
		s, err := src.Acquisition(ctx, key)
		if err != nil {
			return stats, fmt.Errorf("read acquisition %s: %w", key, err)
		}
		if err := dst.WriteAcquisition(ctx, key, s); err != nil {
			return stats, fmt.Errorf("write acquisition %s: %w", key, err)
		}
		stats.Acquisitions++
	}

	stimKeys, err := src.StimulusKeys(ctx)
	if err != nil {
		return stats, fmt.Errorf("list stimuli: %w", err)
	}
	for _, key := range stimKeys {
		s, err := src.Stimulus(ctx, key)
		if err != nil {
			return stats, fmt.Errorf("read stimulus %s: %w", key, err)
		}
		if err := dst.WriteStimulus(ctx, key, s); err != nil {
			return stats, fmt.Errorf("write stimulus %s: %w", key, err)
		}
		stats.Stimuli++
	}
	return stats, nil
}

func sortedKeys(m map[string]*Series) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
