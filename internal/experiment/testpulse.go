package experiment

import (
	"math"
	"time"

	"miesnwb/internal/notebook"
)

// PulseSource says where a test pulse came from.
type PulseSource int

const (
	// InsertedPulse was played at the start of the recording itself.
	InsertedPulse PulseSource = iota
	// StandalonePulse was acquired as its own block between sweeps.
	StandalonePulse
)

func (s PulseSource) String() string {
	if s == InsertedPulse {
		return "inserted"
	}
	return "standalone"
}

// PulseStimulus holds the test pulse parameters in notebook units: fraction,
// mV, pA, and ms.
type PulseStimulus struct {
	BaselineFraction notebook.Value `json:"baseline_fraction"`
	AmplitudeVC      notebook.Value `json:"amplitude_vc"`
	AmplitudeIC      notebook.Value `json:"amplitude_ic"`
	PulseDuration    notebook.Value `json:"pulse_duration"`
}

func pulseStimulusOf(f notebook.Fields) PulseStimulus {
	return PulseStimulus{
		BaselineFraction: f.Get(notebook.FieldTPBaselineFraction),
		AmplitudeVC:      f.Get(notebook.FieldTPAmplitudeVC),
		AmplitudeIC:      f.Get(notebook.FieldTPAmplitudeIC),
		PulseDuration:    f.Get(notebook.FieldTPPulseDuration),
	}
}

// Amplitude returns the step size for mode in SI units.
func (s PulseStimulus) Amplitude(mode ClampMode) notebook.Value {
	if mode == VoltageClamp {
		return s.AmplitudeVC.Scale(millivoltsToVolts)
	}
	return s.AmplitudeIC.Scale(picoampsToAmps)
}

// PulseLevels are primary trace levels measured over an inserted pulse, in
// SI units.
type PulseLevels struct {
	Baseline notebook.Value `json:"baseline"`
	Peak     notebook.Value `json:"peak"`
	Steady   notebook.Value `json:"steady"`
}

// TestPulse is a test pulse viewed from one headstage. Quantities that do
// not apply to its clamp mode are unset.
type TestPulse struct {
	Source    PulseSource
	Headstage int
	ClampMode ClampMode
	StartTime time.Time
	Stimulus  PulseStimulus

	// BlockIndex is the standalone block's index, or -1.
	BlockIndex int
	// Window and Timing are set for inserted pulses.
	Window Window
	Timing TestPulseTiming
	Levels PulseLevels

	values map[Quantity]notebook.Value
}

// Quantity returns q, or unset when q does not apply to the pulse's mode.
func (p *TestPulse) Quantity(q Quantity) notebook.Value {
	if !p.ClampMode.Applies(q) {
		return notebook.Unset
	}
	return p.values[q]
}

// AccessResistance in ohms; voltage clamp only.
func (p *TestPulse) AccessResistance() notebook.Value { return p.Quantity(AccessResistance) }

// InputResistance in ohms.
func (p *TestPulse) InputResistance() notebook.Value { return p.Quantity(InputResistance) }

// BaselinePotential in volts; current clamp only.
func (p *TestPulse) BaselinePotential() notebook.Value { return p.Quantity(BaselinePotential) }

// BaselineCurrent in amps; voltage clamp only.
func (p *TestPulse) BaselineCurrent() notebook.Value { return p.Quantity(BaselineCurrent) }

// Amplitude is the step size in SI units.
func (p *TestPulse) Amplitude() notebook.Value { return p.Stimulus.Amplitude(p.ClampMode) }

// newStandaloneTestPulse restricts a test pulse block to one headstage. The
// block does not record a clamp mode; a baseline potential means the
// headstage was in current clamp.
func newStandaloneTestPulse(block *notebook.TestPulseBlock, headstage int) *TestPulse {
	fields, _ := block.Headstage(headstage)
	mode := VoltageClamp
	if fields.Get(notebook.FieldTPBaselineVm).Valid {
		mode = CurrentClamp
	}
	return &TestPulse{
		Source:     StandalonePulse,
		Headstage:  headstage,
		ClampMode:  mode,
		StartTime:  block.Timestamp,
		Stimulus:   pulseStimulusOf(block.Stimulus()),
		BlockIndex: block.Index,
		values: map[Quantity]notebook.Value{
			AccessResistance:  fields.Get(notebook.FieldTPPeakResistance).Scale(megaohmsToOhms),
			InputResistance:   fields.Get(notebook.FieldTPSteadyResistance).Scale(megaohmsToOhms),
			BaselinePotential: fields.Get(notebook.FieldTPBaselineVm).Scale(millivoltsToVolts),
			BaselineCurrent:   fields.Get(notebook.FieldTPBaselinePA).Scale(picoampsToAmps),
		},
	}
}

// BlockTestPulses returns one standalone test pulse per headstage that has
// a result in block, headstages ascending.
func BlockTestPulses(block *notebook.TestPulseBlock) []*TestPulse {
	var out []*TestPulse
	for h := 0; h < notebook.NumHeadstages; h++ {
		fields, _ := block.Headstage(h)
		if !fields.Get(notebook.FieldTPPeakResistance).Valid && !fields.Get(notebook.FieldTPSteadyResistance).Valid {
			continue
		}
		out = append(out, newStandaloneTestPulse(block, h))
	}
	return out
}

// newInsertedTestPulse measures the pulse at the start of primary. The
// window covers baseline, pulse, and the trailing baseline.
func newInsertedTestPulse(headstage int, mode ClampMode, start time.Time, stim PulseStimulus, timing TestPulseTiming, primary *Trace) *TestPulse {
	dt := primary.SampleInterval
	tp := &TestPulse{
		Source:     InsertedPulse,
		Headstage:  headstage,
		ClampMode:  mode,
		StartTime:  start,
		Stimulus:   stim,
		BlockIndex: -1,
		Window:     timing.Window(dt),
		Timing:     timing,
	}
	tp.Levels = measurePulse(primary, samples(timing.Baseline, dt), samples(timing.Pulse, dt))

	amp := stim.Amplitude(mode)
	baseline, peak, steady := tp.Levels.Baseline, tp.Levels.Peak, tp.Levels.Steady
	if mode == VoltageClamp {
		tp.values = map[Quantity]notebook.Value{
			AccessResistance: ratio(amp, diff(peak, baseline)),
			InputResistance:  ratio(amp, diff(steady, baseline)),
			BaselineCurrent:  baseline,
		}
	} else {
		tp.values = map[Quantity]notebook.Value{
			AccessResistance:  ratio(diff(peak, baseline), amp),
			InputResistance:   ratio(diff(steady, baseline), amp),
			BaselinePotential: baseline,
		}
	}
	return tp
}

// measurePulse reads the baseline mean, the sample deviating most from it
// during the pulse, and the mean of the last fifth of the pulse. Levels are
// unset when the trace is shorter than baseline plus pulse.
func measurePulse(primary *Trace, baselineSamples, pulseSamples int) PulseLevels {
	onset, offset := baselineSamples, baselineSamples+pulseSamples
	if baselineSamples <= 0 || pulseSamples <= 0 || offset > primary.Len() {
		return PulseLevels{}
	}
	baseline := primary.Mean(Window{Start: 0, Stop: onset})

	peak := primary.Data[onset]
	for _, v := range primary.Data[onset:offset] {
		if math.Abs(v-baseline) > math.Abs(peak-baseline) {
			peak = v
		}
	}
	tail := max(1, pulseSamples/5)
	steady := primary.Mean(Window{Start: offset - tail, Stop: offset})

	return PulseLevels{
		Baseline: notebook.ValueOf(baseline),
		Peak:     notebook.ValueOf(peak),
		Steady:   notebook.ValueOf(steady),
	}
}

func diff(a, b notebook.Value) notebook.Value {
	if !a.Valid || !b.Valid {
		return notebook.Unset
	}
	return notebook.ValueOf(a.Float64 - b.Float64)
}

func ratio(num, den notebook.Value) notebook.Value {
	if !num.Valid || !den.Valid || den.Float64 == 0 {
		return notebook.Unset
	}
	return notebook.ValueOf(num.Float64 / den.Float64)
}

// Locate returns the index of the block closest in time to at. Ties go to
// the earlier block; ok is false when there are no blocks.
func Locate(blocks []notebook.TestPulseBlock, at time.Time) (int, bool) {
	best, bestDist := -1, time.Duration(0)
	for i := range blocks {
		d := blocks[i].Timestamp.Sub(at)
		if d < 0 {
			d = -d
		}
		if d < 0 {
			d = math.MaxInt64
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}
