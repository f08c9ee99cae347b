package store

import (
	"context"
	"sync"
)

// Memory is an in-process Reader and Writer.
type Memory struct {
	mu          sync.RWMutex
	notebook    *NotebookData
	acquisition map[string]*Series
	stimulus    map[string]*Series
	closed      bool
}

// NewMemory returns an empty Memory reader.
func NewMemory() *Memory {
	return &Memory{
		acquisition: make(map[string]*Series),
		stimulus:    make(map[string]*Series),
	}
}

// Notebook returns the stored notebook table.
func (m *Memory) Notebook(context.Context) (*NotebookData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.notebook == nil {
		return nil, notFound("notebook", "labnotebook")
	}
	return m.notebook, nil
}

// AcquisitionKeys lists the AD series keys in sorted order.
func (m *Memory) AcquisitionKeys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return sortedKeys(m.acquisition), nil
}

// Acquisition returns one AD series.
func (m *Memory) Acquisition(_ context.Context, key string) (*Series, error) {
	return m.series(m.acquisition, "acquisition", key)
}

// AcquisitionInfo returns the attributes of one AD series.
func (m *Memory) AcquisitionInfo(ctx context.Context, key string) (SeriesInfo, error) {
	s, err := m.Acquisition(ctx, key)
	if err != nil {
		return SeriesInfo{}, err
	}
	return s.Info(), nil
}

// StimulusKeys lists the DA series keys in sorted order.
func (m *Memory) StimulusKeys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return sortedKeys(m.stimulus), nil
}

// Stimulus returns one DA series.
func (m *Memory) Stimulus(_ context.Context, key string) (*Series, error) {
	return m.series(m.stimulus, "stimulus", key)
}

// StimulusInfo returns the attributes of one DA series.
func (m *Memory) StimulusInfo(ctx context.Context, key string) (SeriesInfo, error) {
	s, err := m.Stimulus(ctx, key)
	if err != nil {
		return SeriesInfo{}, err
	}
	return s.Info(), nil
}

func (m *Memory) series(src map[string]*Series, kind, key string) (*Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	s, ok := src[key]
	if !ok {
		return nil, notFound(kind, key)
	}
	return s, nil
}

// WriteNotebook replaces the notebook table.
func (m *Memory) WriteNotebook(_ context.Context, nb *NotebookData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.notebook = nb
	return nil
}

// WriteAcquisition stores an AD series.
func (m *Memory) WriteAcquisition(_ context.Context, key string, s *Series) error {
	return m.write(m.acquisition, key, s)
}

// WriteStimulus stores a DA series.
func (m *Memory) WriteStimulus(_ context.Context, key string, s *Series) error {
	return m.write(m.stimulus, key, s)
}

func (m *Memory) write(dst map[string]*Series, key string, s *Series) error {
	if _, err := ParseChannelKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	dst[key] = s
	return nil
}

// Close marks the reader unusable. Closing twice is allowed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
