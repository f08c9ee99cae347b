package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Dump is the JSON interchange format for a recording file. Unset notebook
// cells are written as null.
type Dump struct {
	Notebook    dumpNotebook          `json:"notebook"`
	Acquisition map[string]dumpSeries `json:"acquisition"`
	Stimulus    map[string]dumpSeries `json:"stimulus"`
}

type dumpNotebook struct {
	Keys     []string      `json:"keys"`
	Rows     int           `json:"rows"`
	Channels int           `json:"channels"`
	Values   nullableFloat `json:"values"`
}

type dumpSeries struct {
	Data                nullableFloat `json:"data"`
	SampleInterval      float64       `json:"sample_interval"`
	ElectrodeName       string        `json:"electrode_name"`
	StimulusDescription string        `json:"stimulus_description,omitempty"`
}

// nullableFloat maps JSON null to NaN and back.
type nullableFloat []float64

func (n nullableFloat) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(n))
	for i := range n {
		if math.IsNaN(n[i]) || math.IsInf(n[i], 0) {
			continue
		}
		out[i] = &n[i]
	}
	return json.Marshal(out)
}

func (n *nullableFloat) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*n = out
	return nil
}

// LoadDump decodes a JSON dump into a Memory reader.
func LoadDump(r io.Reader) (*Memory, error) {
	var d Dump
	dec := json.NewDecoder(r)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	nb := d.Notebook
	if want := nb.Rows * len(nb.Keys) * nb.Channels; len(nb.Values) != want {
		return nil, fmt.Errorf("decode dump: notebook has %d values, want %d", len(nb.Values), want)
	}

	ctx := context.Background()
	m := NewMemory()
	if err := m.WriteNotebook(ctx, &NotebookData{
		Keys:     nb.Keys,
		Values:   nb.Values,
		Rows:     nb.Rows,
		Channels: nb.Channels,
	}); err != nil {
		return nil, err
	}
	for key, s := range d.Acquisition {
		if err := m.WriteAcquisition(ctx, key, s.series()); err != nil {
			return nil, fmt.Errorf("decode dump: %w", err)
		}
	}
	for key, s := range d.Stimulus {
		if err := m.WriteStimulus(ctx, key, s.series()); err != nil {
			return nil, fmt.Errorf("decode dump: %w", err)
		}
	}
	return m, nil
}

// LoadDumpFile opens and decodes a JSON dump.
func LoadDumpFile(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()
	return LoadDump(f)
}

// WriteDump encodes everything src holds as JSON.
func WriteDump(ctx context.Context, w io.Writer, src Reader) error {
	nb, err := src.Notebook(ctx)
	if err != nil {
		return fmt.Errorf("read notebook: %w", err)
	}
	d := Dump{
		Notebook: dumpNotebook{
			Keys:     nb.Keys,
			Rows:     nb.Rows,
			Channels: nb.Channels,
			Values:   nb.Values,
		},
		Acquisition: map[string]dumpSeries{},
		Stimulus:    map[string]dumpSeries{},
	}
	if err := collectSeries(ctx, d.Acquisition, src.AcquisitionKeys, src.Acquisition); err != nil {
		return err
	}
	if err := collectSeries(ctx, d.Stimulus, src.StimulusKeys, src.Stimulus); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func collectSeries(
	ctx context.Context,
	dst map[string]dumpSeries,
	list func(context.Context) ([]string, error),
	get func(context.Context, string) (*Series, error),
) error {
	keys, err := list(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		s, err := get(ctx, key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		dst[key] = dumpSeries{
			Data:                s.Data,
			SampleInterval:      s.SampleInterval,
			ElectrodeName:       s.ElectrodeName,
			StimulusDescription: s.StimulusDescription,
		}
	}
	return nil
}

func (s dumpSeries) series() *Series {
	return &Series{
		Data:                s.Data,
		SampleInterval:      s.SampleInterval,
		ElectrodeName:       s.ElectrodeName,
		StimulusDescription: s.StimulusDescription,
	}
}
