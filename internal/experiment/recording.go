package experiment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"miesnwb/internal/notebook"
	"miesnwb/internal/store"
)

// Recording is one headstage of one sweep. Its metadata is fixed when it is
// built; traces and test pulses are computed on first use.
type Recording struct {
	SweepID   int
	Headstage int
	ADChannel int
	DAChannel int

	sweep               *Sweep
	adKey               string
	daKey               string
	electrode           string
	stimulusDescription string
	sampleInterval      float64
	fields              notebook.Fields

	clampMode        ClampMode
	holdingPotential notebook.Value
	holdingCurrent   notebook.Value
	bridgeBalance    notebook.Value
	lpfCutoff        notebook.Value
	pipetteOffset    notebook.Value
	startTime        time.Time

	mu          sync.Mutex
	primary     traceCache
	command     traceCache
	inserted    *TestPulse
	insertedGen uint64
	nearest     *TestPulse
	nearestDone bool
}

func newRecording(ctx context.Context, s *Sweep, r store.Reader, resolver *ChannelResolver, ck store.ChannelKey) (*Recording, error) {
	fail := func(headstage int, reason string, err error) error {
		return &ResolutionError{SweepID: s.ID, ADChannel: ck.Channel, Headstage: headstage, Reason: reason, Err: err}
	}

	key := ck.String()
	info, err := r.AcquisitionInfo(ctx, key)
	if err != nil {
		return nil, fail(-1, "read acquisition", err)
	}
	headstage, err := HeadstageOf(info.ElectrodeName)
	if err != nil {
		return nil, fail(-1, "unusable electrode name", err)
	}
	if headstage >= notebook.NumHeadstages {
		return nil, fail(headstage, fmt.Sprintf("headstage out of range 0-%d", notebook.NumHeadstages-1), nil)
	}
	if s.entry == nil {
		return nil, fail(headstage, "sweep has no notebook entry", nil)
	}
	da, err := resolver.Stimulus(ctx, s.ID, info.ElectrodeName)
	if err != nil {
		return nil, fail(headstage, "no matching stimulus channel", err)
	}

	fields, _ := s.entry.Headstage(headstage)
	rec := &Recording{
		SweepID:             s.ID,
		Headstage:           headstage,
		ADChannel:           ck.Channel,
		DAChannel:           da.Channel,
		sweep:               s,
		adKey:               key,
		daKey:               da.String(),
		electrode:           info.ElectrodeName,
		stimulusDescription: info.StimulusDescription,
		sampleInterval:      info.SampleInterval,
		fields:              fields,
		clampMode:           clampModeOf(fields.Get(notebook.FieldClampMode)),
		holdingPotential:    fields.Get(notebook.FieldHoldingPotential).Scale(millivoltsToVolts),
		holdingCurrent:      fields.Get(notebook.FieldHoldingCurrent).Scale(picoampsToAmps),
		lpfCutoff:           fields.Get(notebook.FieldLPFCutoff),
		pipetteOffset:       fields.Get(notebook.FieldPipetteOffset).Scale(millivoltsToVolts),
		startTime:           notebook.IgorTime(fields.Get(notebook.FieldTimeStamp).Raw()),
	}
	if rec.clampMode == CurrentClamp {
		rec.bridgeBalance = bridgeBalanceOf(fields)
	}
	return rec, nil
}

// bridgeBalanceOf is zero when bridge balance is disabled or its value is
// unset, otherwise the value in ohms.
func bridgeBalanceOf(fields notebook.Fields) notebook.Value {
	value := fields.Get(notebook.FieldBridgeBalance)
	if fields.Get(notebook.FieldBridgeBalanceOn).Is(0) || !value.Valid {
		return notebook.ValueOf(0)
	}
	return value.Scale(megaohmsToOhms)
}

// Sweep returns the owning sweep.
func (r *Recording) Sweep() *Sweep { return r.sweep }

// ClampMode is fixed for the recording's lifetime.
func (r *Recording) ClampMode() ClampMode { return r.clampMode }

// HoldingPotential in volts.
func (r *Recording) HoldingPotential() notebook.Value { return r.holdingPotential }

// HoldingCurrent in amps.
func (r *Recording) HoldingCurrent() notebook.Value { return r.holdingCurrent }

// BridgeBalance in ohms. Unset in voltage clamp.
func (r *Recording) BridgeBalance() notebook.Value { return r.bridgeBalance }

// LPFCutoff as stored in the notebook.
func (r *Recording) LPFCutoff() notebook.Value { return r.lpfCutoff }

// PipetteOffset in volts.
func (r *Recording) PipetteOffset() notebook.Value { return r.pipetteOffset }

// StartTime in UTC; the zero time when the notebook has no timestamp.
func (r *Recording) StartTime() time.Time { return r.startTime }

// SampleInterval in seconds.
func (r *Recording) SampleInterval() float64 { return r.sampleInterval }

// Electrode is the electrode name shared by the AD and DA series.
func (r *Recording) Electrode() string { return r.electrode }

// StimulusDescription names the stimulus set that was played.
func (r *Recording) StimulusDescription() string { return r.stimulusDescription }

// Notebook returns the reconciled notebook fields of this headstage.
func (r *Recording) Notebook() notebook.Fields { return r.fields }

// HasInsertedTestPulse reports whether a test pulse was played at the start
// of the recording.
func (r *Recording) HasInsertedTestPulse() bool {
	return r.fields.Get(notebook.FieldTPInsert).Is(1)
}

// BaselineRegions lists the sample ranges where the cell is expected to be
// at rest.
func (r *Recording) BaselineRegions() []Region {
	return baselineRegions(r.fields, r.sampleInterval)
}

// InsertedTiming returns the inserted test pulse timing, or false when there
// is no inserted pulse or its parameters are unset.
func (r *Recording) InsertedTiming() (TestPulseTiming, bool) {
	if !r.HasInsertedTestPulse() {
		return TestPulseTiming{}, false
	}
	return InsertedTiming(
		r.fields.Get(notebook.FieldTPPulseDuration),
		r.fields.Get(notebook.FieldTPBaselineFraction),
	)
}

// Primary returns the recorded signal: amps in voltage clamp, volts in
// current clamp.
func (r *Recording) Primary(ctx context.Context) (*Trace, error) {
	return r.trace(ctx, TracePrimary)
}

// Command returns the stimulus signal in the opposite unit, with the holding
// level added back because stored commands exclude it.
func (r *Recording) Command(ctx context.Context) (*Trace, error) {
	return r.trace(ctx, TraceCommand)
}

func (r *Recording) trace(ctx context.Context, name string) (*Trace, error) {
	reader, gen, err := r.sweep.file.Reader(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cache := &r.primary
	if name == TraceCommand {
		cache = &r.command
	}
	if t, ok := cache.get(gen); ok {
		return t, nil
	}

	var (
		series *store.Series
		scale  float64
		offset float64
		units  string
	)
	if name == TracePrimary {
		series, err = reader.Acquisition(ctx, r.adKey)
		scale, units = r.clampMode.primaryScale(), r.clampMode.PrimaryUnits()
	} else {
		series, err = reader.Stimulus(ctx, r.daKey)
		scale, units = r.clampMode.commandScale(), r.clampMode.CommandUnits()
		if r.clampMode == VoltageClamp {
			offset = r.holdingPotential.Or(0)
		} else {
			offset = r.holdingCurrent.Or(0)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("sweep %d headstage %d %s: %w", r.SweepID, r.Headstage, name, err)
	}

	t := &Trace{
		Name:           name,
		Units:          units,
		SampleInterval: series.SampleInterval,
		StartTime:      r.startTime,
		Data:           scaleSamples(series.Data, scale, offset),
	}
	cache.set(t, gen)
	return t, nil
}

// errNoInsertedTiming is returned by InsertedTestPulse when the pulse was
// inserted but its duration or baseline fraction is unusable.
var errNoInsertedTiming = errors.New("inserted test pulse has no usable duration or baseline fraction")

// InsertedTestPulse measures the test pulse at the start of the recording.
// It returns nil without error when no pulse was inserted.
func (r *Recording) InsertedTestPulse(ctx context.Context) (*TestPulse, error) {
	if !r.HasInsertedTestPulse() {
		return nil, nil
	}
	timing, ok := r.InsertedTiming()
	if !ok {
		return nil, fmt.Errorf("sweep %d headstage %d: %w", r.SweepID, r.Headstage, errNoInsertedTiming)
	}
	primary, err := r.Primary(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	gen := r.primary.generation
	if r.inserted != nil && r.insertedGen == gen {
		return r.inserted, nil
	}
	r.inserted = newInsertedTestPulse(r.Headstage, r.clampMode, r.startTime, pulseStimulusOf(r.fields), timing, primary)
	r.insertedGen = gen
	return r.inserted, nil
}

// NearestTestPulse returns the inserted test pulse when there is one, and
// otherwise the standalone block closest in time to the recording's start.
// It returns nil when the file has no standalone blocks.
func (r *Recording) NearestTestPulse(ctx context.Context) (*TestPulse, error) {
	if r.HasInsertedTestPulse() {
		return r.InsertedTestPulse(ctx)
	}

	r.mu.Lock()
	if r.nearestDone {
		defer r.mu.Unlock()
		return r.nearest, nil
	}
	r.mu.Unlock()

	blocks, err := r.sweep.file.TestPulseEntries(ctx)
	if err != nil {
		return nil, err
	}
	var nearest *TestPulse
	if i, ok := Locate(blocks, r.startTime); ok {
		nearest = newStandaloneTestPulse(&blocks[i], r.Headstage)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.nearestDone {
		r.nearest, r.nearestDone = nearest, true
	}
	return r.nearest, nil
}
