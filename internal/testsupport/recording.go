package testsupport

import (
	"context"
	"fmt"
	"testing"

	"miesnwb/internal/config"
	"miesnwb/internal/notebook"
	"miesnwb/internal/store"
)

// StimulusName is the stimulus description attached by Channel.
const StimulusName = "PulseTrain_10Hz_DA_0"

// Electrode returns the electrode name recorded for a headstage.
func Electrode(headstage int) string {
	return fmt.Sprintf("electrode_%d", headstage)
}

// RecordingBuilder assembles an in-memory recording file: a notebook plus AD
// and DA series.
type RecordingBuilder struct {
	notebook    *NotebookBuilder
	acquisition map[string]*store.Series
	stimulus    map[string]*store.Series
}

// NewRecordingBuilder wraps a notebook builder.
func NewRecordingBuilder(nb *NotebookBuilder) *RecordingBuilder {
	return &RecordingBuilder{
		notebook:    nb,
		acquisition: make(map[string]*store.Series),
		stimulus:    make(map[string]*store.Series),
	}
}

// Channel adds the AD and DA series of one headstage, using the headstage
// number as both hardware channel numbers.
func (b *RecordingBuilder) Channel(sweep, headstage int, dt float64, primary, command []float64) *RecordingBuilder {
	return b.Wired(sweep, headstage, headstage, headstage, dt, primary, command)
}

// Wired adds one headstage whose AD and DA hardware channels differ from the
// headstage number.
func (b *RecordingBuilder) Wired(sweep, headstage, ad, da int, dt float64, primary, command []float64) *RecordingBuilder {
	b.Acquisition(store.ChannelKey{Sweep: sweep, Kind: store.KindAD, Channel: ad}.String(), &store.Series{
		Data:                primary,
		SampleInterval:      dt,
		ElectrodeName:       Electrode(headstage),
		StimulusDescription: StimulusName,
	})
	b.Stimulus(store.ChannelKey{Sweep: sweep, Kind: store.KindDA, Channel: da}.String(), &store.Series{
		Data:           command,
		SampleInterval: dt,
		ElectrodeName:  Electrode(headstage),
	})
	return b
}

// Acquisition adds a raw AD series.
func (b *RecordingBuilder) Acquisition(key string, s *store.Series) *RecordingBuilder {
	b.acquisition[key] = s
	return b
}

// Stimulus adds a raw DA series.
func (b *RecordingBuilder) Stimulus(key string, s *store.Series) *RecordingBuilder {
	b.stimulus[key] = s
	return b
}

// Memory writes everything into a fresh store.Memory.
func (b *RecordingBuilder) Memory(t testing.TB) *store.Memory {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	err := mem.WriteNotebook(ctx, &store.NotebookData{
		Keys:     b.notebook.Keys(),
		Values:   b.notebook.Flat(),
		Rows:     len(b.notebook.Rows()),
		Channels: notebook.NumChannels,
	})
	if err != nil {
		t.Fatalf("write notebook: %v", err)
	}
	for key, s := range b.acquisition {
		if err := mem.WriteAcquisition(ctx, key, s); err != nil {
			t.Fatalf("write acquisition: %v", err)
		}
	}
	for key, s := range b.stimulus {
		if err := mem.WriteStimulus(ctx, key, s); err != nil {
			t.Fatalf("write stimulus: %v", err)
		}
	}
	return mem
}

// MustImportArchive writes the recording into a new archive under the
// config's archive directory and returns its path. The archive is closed.
func (b *RecordingBuilder) MustImportArchive(t testing.TB, cfg *config.Config, name string) string {
	t.Helper()
	path := cfg.ArchivePath(name + cfg.Archive.Suffix)
	ctx := context.Background()
	archive, err := store.CreateArchive(ctx, path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer archive.Close()
	if _, err := archive.Import(ctx, b.Memory(t), name+".json"); err != nil {
		t.Fatalf("import archive: %v", err)
	}
	return path
}

// Ramp returns n samples 0, step, 2·step, ...
func Ramp(n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * step
	}
	return out
}

// Constant returns n copies of v.
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
