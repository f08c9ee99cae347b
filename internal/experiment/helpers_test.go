package experiment_test

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"miesnwb/internal/experiment"
	"miesnwb/internal/notebook"
	"miesnwb/internal/store"
	ts "miesnwb/internal/testsupport"
)

const dt = 1e-4

var sweepStart = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

func igor(t time.Time) float64 { return notebook.IgorSeconds(t) }

// fixtureNotebook has sweep 0 with a voltage clamp headstage 0 and a current
// clamp headstage 1, sweep 1 with headstage 0 only, and one standalone test
// pulse an hour after sweep 0.
func fixtureNotebook() *ts.NotebookBuilder {
	return ts.NewNotebookBuilder().
		SweepRow(0, igor(sweepStart), ts.Cells{
			notebook.FieldClampMode:        {0: 0, 1: 1},
			notebook.FieldHoldingPotential: ts.At(0, -70),
			notebook.FieldHoldingCurrent:   ts.At(1, -50),
			notebook.FieldBridgeBalanceOn:  {0: 1, 1: 1},
			notebook.FieldBridgeBalance:    {0: 12, 1: 15},
			notebook.FieldLPFCutoff:        ts.Headstages(10000, 0, 1),
		}).
		SweepRow(0, igor(sweepStart), ts.Cells{
			notebook.FieldDelayOnsetAuto:   ts.Global(10),
			notebook.FieldDelayOnsetUser:   ts.Global(5),
			notebook.FieldDelayTermination: ts.Global(20),
		}).
		TestPulseRows(igor(sweepStart.Add(time.Hour)),
			ts.Cells{
				notebook.FieldTPBaselineVm:       ts.At(1, -65),
				notebook.FieldTPBaselinePA:       ts.At(0, -20),
				notebook.FieldTPPeakResistance:   ts.Headstages(12, 0, 1),
				notebook.FieldTPSteadyResistance: ts.Headstages(250, 0, 1),
			},
			ts.Cells{
				notebook.FieldTPPulseDuration:    ts.Global(10),
				notebook.FieldTPBaselineFraction: ts.Global(0.35),
				notebook.FieldTPAmplitudeVC:      ts.Global(10),
			}).
		SweepRow(1, igor(sweepStart.Add(10*time.Second)), ts.Cells{
			notebook.FieldClampMode:        ts.At(0, 0),
			notebook.FieldHoldingPotential: ts.At(0, -60),
		})
}

func fixtureRecording() *ts.RecordingBuilder {
	return ts.NewRecordingBuilder(fixtureNotebook()).
		Channel(0, 0, dt, []float64{10, 20, 30}, []float64{0, 5, 0}).
		Channel(0, 1, dt, []float64{-65, -64, -63}, []float64{0, 100, 0}).
		Channel(1, 0, dt, []float64{1, 2, 3}, []float64{0, 0, 0})
}

// countingReader counts notebook and sample reads through a store.Memory.
type countingReader struct {
	*store.Memory
	counter *openCounter
}

func (c countingReader) Notebook(ctx context.Context) (*store.NotebookData, error) {
	c.counter.notebookReads.Add(1)
	return c.Memory.Notebook(ctx)
}

func (c countingReader) Acquisition(ctx context.Context, key string) (*store.Series, error) {
	c.counter.acquisitionReads.Add(1)
	return c.Memory.Acquisition(ctx, key)
}

func (c countingReader) Stimulus(ctx context.Context, key string) (*store.Series, error) {
	c.counter.stimulusReads.Add(1)
	return c.Memory.Stimulus(ctx, key)
}

type openCounter struct {
	opens            atomic.Int32
	notebookReads    atomic.Int32
	acquisitionReads atomic.Int32
	stimulusReads    atomic.Int32
}

// opener returns a store.Opener that builds a fresh Memory per open.
func (c *openCounter) opener(t *testing.T, b *ts.RecordingBuilder) store.Opener {
	return func(context.Context) (store.Reader, error) {
		c.opens.Add(1)
		return countingReader{Memory: b.Memory(t), counter: c}, nil
	}
}

func openFixture(t *testing.T, b *ts.RecordingBuilder, opts ...experiment.Option) (*experiment.File, *openCounter) {
	t.Helper()
	counter := &openCounter{}
	f := experiment.Open(counter.opener(t, b), opts...)
	t.Cleanup(func() { _ = f.Close() })
	return f, counter
}

func mustSweep(t *testing.T, f *experiment.File, id int) *experiment.Sweep {
	t.Helper()
	s, err := f.Sweep(context.Background(), id)
	if err != nil {
		t.Fatalf("Sweep(%d): %v", id, err)
	}
	return s
}

func mustRecording(t *testing.T, s *experiment.Sweep, headstage int) *experiment.Recording {
	t.Helper()
	rec, ok := s.Recording(headstage)
	if !ok {
		t.Fatalf("sweep %d has no headstage %d (failures: %+v)", s.ID, headstage, s.Failures())
	}
	return rec
}

func approx(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func wantValue(t *testing.T, name string, got notebook.Value, want float64) {
	t.Helper()
	if !got.Valid || !approx(got.Float64, want) {
		t.Errorf("%s = %v, want %g", name, got, want)
	}
}

func wantUnset(t *testing.T, name string, got notebook.Value) {
	t.Helper()
	if got.Valid {
		t.Errorf("%s = %v, want unset", name, got)
	}
}
