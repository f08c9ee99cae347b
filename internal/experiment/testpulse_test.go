package experiment_test

import (
	"context"
	"testing"
	"time"

	"miesnwb/internal/experiment"
	"miesnwb/internal/notebook"
	ts "miesnwb/internal/testsupport"
)

func TestInsertedTimingWindow(t *testing.T) {
	timing, ok := experiment.InsertedTiming(notebook.ValueOf(10), notebook.ValueOf(0.25))
	if !ok {
		t.Fatal("expected usable timing")
	}
	if !approx(timing.Baseline, 0.020) || !approx(timing.Total, 0.050) {
		t.Fatalf("unexpected timing %+v", timing)
	}
	if w := timing.Window(0.1e-3); w != (experiment.Window{Start: 0, Stop: 500}) {
		t.Fatalf("window = %+v, want [0,500)", w)
	}

	bad := []struct {
		name     string
		pulse    notebook.Value
		fraction notebook.Value
	}{
		{"unset pulse", notebook.Unset, notebook.ValueOf(0.25)},
		{"unset fraction", notebook.ValueOf(10), notebook.Unset},
		{"fraction too large", notebook.ValueOf(10), notebook.ValueOf(0.5)},
	}
	for _, tt := range bad {
		if _, ok := experiment.InsertedTiming(tt.pulse, tt.fraction); ok {
			t.Errorf("%s: expected timing to be unusable", tt.name)
		}
	}
}

func TestClampModeApplicability(t *testing.T) {
	tests := []struct {
		q      experiment.Quantity
		vc, ic bool
	}{
		{experiment.AccessResistance, true, false},
		{experiment.InputResistance, true, true},
		{experiment.BaselinePotential, false, true},
		{experiment.BaselineCurrent, true, false},
	}
	for _, tt := range tests {
		if got := experiment.VoltageClamp.Applies(tt.q); got != tt.vc {
			t.Errorf("voltage clamp %v: got %v", tt.q, got)
		}
		if got := experiment.CurrentClamp.Applies(tt.q); got != tt.ic {
			t.Errorf("current clamp %v: got %v", tt.q, got)
		}
	}
}

func TestLocate(t *testing.T) {
	at := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	blocks := []notebook.TestPulseBlock{
		{Index: 0, Timestamp: at.Add(-time.Minute)},
		{Index: 1, Timestamp: at.Add(time.Minute)},
		{Index: 2, Timestamp: at.Add(30 * time.Second)},
	}
	if i, ok := experiment.Locate(blocks, at); !ok || i != 2 {
		t.Fatalf("Locate = %d, %v; want 2", i, ok)
	}
	if i, ok := experiment.Locate(blocks[:2], at); !ok || i != 0 {
		t.Fatalf("tie should go to the first block, got %d", i)
	}
	if i, ok := experiment.Locate(blocks[:1], at.Add(1000*time.Hour)); !ok || i != 0 {
		t.Fatalf("single block must always win, got %d %v", i, ok)
	}
	if _, ok := experiment.Locate(nil, at); ok {
		t.Fatal("expected no block for an empty set")
	}
}

func TestNearestTestPulseUsesStandaloneBlock(t *testing.T) {
	ctx := context.Background()
	f, _ := openFixture(t, fixtureRecording())
	s := mustSweep(t, f, 0)

	vc, err := mustRecording(t, s, 0).NearestTestPulse(ctx)
	if err != nil || vc == nil {
		t.Fatalf("NearestTestPulse: %v %v", vc, err)
	}
	if vc.Source != experiment.StandalonePulse || vc.BlockIndex != 0 {
		t.Fatalf("unexpected pulse source %v block %d", vc.Source, vc.BlockIndex)
	}
	if vc.ClampMode != experiment.VoltageClamp {
		t.Fatalf("headstage 0 pulse should be voltage clamp, got %v", vc.ClampMode)
	}
	wantValue(t, "access resistance", vc.AccessResistance(), 12e6)
	wantValue(t, "input resistance", vc.InputResistance(), 250e6)
	wantValue(t, "baseline current", vc.BaselineCurrent(), -20e-12)
	wantUnset(t, "baseline potential in voltage clamp", vc.BaselinePotential())
	wantValue(t, "pulse duration", vc.Stimulus.PulseDuration, 10)
	wantValue(t, "amplitude", vc.Amplitude(), 10e-3)
	if !vc.StartTime.Equal(sweepStart.Add(time.Hour)) {
		t.Fatalf("unexpected pulse time %v", vc.StartTime)
	}

	ic, err := mustRecording(t, s, 1).NearestTestPulse(ctx)
	if err != nil || ic == nil {
		t.Fatalf("NearestTestPulse: %v %v", ic, err)
	}
	if ic.ClampMode != experiment.CurrentClamp {
		t.Fatalf("headstage 1 pulse should be current clamp, got %v", ic.ClampMode)
	}
	wantUnset(t, "access resistance in current clamp", ic.AccessResistance())
	wantUnset(t, "baseline current in current clamp", ic.BaselineCurrent())
	wantValue(t, "baseline potential", ic.BaselinePotential(), -0.065)
	wantValue(t, "input resistance", ic.InputResistance(), 250e6)

	again, _ := mustRecording(t, s, 0).NearestTestPulse(ctx)
	if again != vc {
		t.Fatal("expected memoized nearest test pulse")
	}
}

func TestNearestTestPulseWithoutBlocks(t *testing.T) {
	nb := ts.NewNotebookBuilder().
		SweepRow(0, 100, ts.Cells{notebook.FieldClampMode: ts.At(0, 0)}).
		SweepRow(0, 100, nil)
	f, _ := openFixture(t, ts.NewRecordingBuilder(nb).Channel(0, 0, dt, []float64{0}, []float64{0}))
	tp, err := mustRecording(t, mustSweep(t, f, 0), 0).NearestTestPulse(context.Background())
	if err != nil {
		t.Fatalf("NearestTestPulse: %v", err)
	}
	if tp != nil {
		t.Fatalf("expected no test pulse, got %+v", tp)
	}
}

// insertedPulseTrace is a voltage clamp response in pA: 200 baseline
// samples at 5, a 100 sample pulse peaking at 505 and settling at 105, and
// 200 trailing samples.
func insertedPulseTrace() []float64 {
	data := ts.Constant(600, 5)
	data[200] = 505
	for i := 201; i < 300; i++ {
		data[i] = 105
	}
	return data
}

func TestInsertedTestPulse(t *testing.T) {
	ctx := context.Background()
	nb := ts.NewNotebookBuilder().
		SweepRow(3, 100, ts.Cells{
			notebook.FieldClampMode:          ts.At(0, 0),
			notebook.FieldTPInsert:           ts.Global(1),
			notebook.FieldTPPulseDuration:    ts.Global(10),
			notebook.FieldTPBaselineFraction: ts.Global(0.25),
			notebook.FieldTPAmplitudeVC:      ts.Global(10),
		}).
		SweepRow(3, 100, nil).
		TestPulseRows(100, ts.Cells{notebook.FieldTPPeakResistance: ts.At(0, 1)}, nil)
	b := ts.NewRecordingBuilder(nb).Channel(3, 0, dt, insertedPulseTrace(), ts.Constant(600, 0))
	f, _ := openFixture(t, b)
	rec := mustRecording(t, mustSweep(t, f, 3), 0)

	if !rec.HasInsertedTestPulse() {
		t.Fatal("expected inserted test pulse")
	}
	tp, err := rec.InsertedTestPulse(ctx)
	if err != nil {
		t.Fatalf("InsertedTestPulse: %v", err)
	}
	if tp.Source != experiment.InsertedPulse || tp.Window != (experiment.Window{Start: 0, Stop: 500}) {
		t.Fatalf("unexpected pulse %v window %+v", tp.Source, tp.Window)
	}
	wantValue(t, "baseline level", tp.Levels.Baseline, 5e-12)
	wantValue(t, "peak level", tp.Levels.Peak, 505e-12)
	wantValue(t, "steady level", tp.Levels.Steady, 105e-12)
	wantValue(t, "access resistance", tp.AccessResistance(), 10e-3/500e-12)
	wantValue(t, "input resistance", tp.InputResistance(), 10e-3/100e-12)
	wantValue(t, "baseline current", tp.BaselineCurrent(), 5e-12)
	wantUnset(t, "baseline potential", tp.BaselinePotential())

	nearest, err := rec.NearestTestPulse(ctx)
	if err != nil || nearest != tp {
		t.Fatalf("nearest should be the inserted pulse, got %+v %v", nearest, err)
	}
}

func TestInsertedTestPulseUnusableTiming(t *testing.T) {
	nb := ts.NewNotebookBuilder().
		SweepRow(0, 100, ts.Cells{notebook.FieldTPInsert: ts.Global(1)}).
		SweepRow(0, 100, nil)
	f, _ := openFixture(t, ts.NewRecordingBuilder(nb).Channel(0, 0, dt, []float64{0}, []float64{0}))
	rec := mustRecording(t, mustSweep(t, f, 0), 0)
	if _, err := rec.InsertedTestPulse(context.Background()); err == nil {
		t.Fatal("expected error for an inserted pulse without duration")
	}

	g, _ := openFixture(t, fixtureRecording())
	tp, err := mustRecording(t, mustSweep(t, g, 0), 0).InsertedTestPulse(context.Background())
	if err != nil || tp != nil {
		t.Fatalf("expected nil pulse for recording without insert, got %v %v", tp, err)
	}
}

func TestBlockTestPulses(t *testing.T) {
	f, _ := openFixture(t, fixtureRecording())
	blocks, err := f.TestPulseEntries(context.Background())
	if err != nil {
		t.Fatalf("TestPulseEntries: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}

	pulses := experiment.BlockTestPulses(&blocks[0])
	if len(pulses) != 2 {
		t.Fatalf("expected pulses for headstages 0 and 1, got %d", len(pulses))
	}
	if pulses[0].Headstage != 0 || pulses[0].ClampMode != experiment.VoltageClamp {
		t.Errorf("unexpected first pulse: headstage %d mode %v", pulses[0].Headstage, pulses[0].ClampMode)
	}
	if pulses[1].Headstage != 1 || pulses[1].ClampMode != experiment.CurrentClamp {
		t.Errorf("unexpected second pulse: headstage %d mode %v", pulses[1].Headstage, pulses[1].ClampMode)
	}
	for _, p := range pulses {
		if p.Source != experiment.StandalonePulse || p.BlockIndex != 0 {
			t.Errorf("headstage %d: unexpected source %v block %d", p.Headstage, p.Source, p.BlockIndex)
		}
	}
}
