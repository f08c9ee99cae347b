// Package export flattens a reconciled recording file into rows and writes
// them as an xlsx workbook or as JSON.
package export

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"miesnwb/internal/experiment"
	"miesnwb/internal/logging"
	"miesnwb/internal/notebook"
)

// Options controls what Build includes.
type Options struct {
	// SessionID tags the export; a random UUID is used when empty.
	SessionID string
	// IncludeGlobalChannel adds the global notebook column as its own row.
	IncludeGlobalChannel bool
	Logger               *slog.Logger
}

// Report is everything an export writes.
type Report struct {
	Archive     string         `json:"archive"`
	SessionID   string         `json:"session_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	SkippedRows int            `json:"skipped_rows"`
	Fields      []string       `json:"fields"`
	Notebook    []NotebookRow  `json:"notebook"`
	Recordings  []RecordingRow `json:"recordings"`
	TestPulses  []TestPulseRow `json:"test_pulses"`
	Failures    []FailureRow   `json:"failures,omitempty"`
}

// NotebookRow is one sweep's reconciled fields for one channel.
type NotebookRow struct {
	SweepID int             `json:"sweep_id"`
	Channel int             `json:"channel"`
	Fields  notebook.Fields `json:"fields"`
}

// ChannelLabel names the row's channel: "HS<n>" or "global".
func (r NotebookRow) ChannelLabel() string { return ChannelLabel(r.Channel) }

// RecordingRow is the metadata of one resolved recording.
type RecordingRow struct {
	SweepID          int            `json:"sweep_id"`
	Headstage        int            `json:"headstage"`
	ADChannel        int            `json:"ad_channel"`
	DAChannel        int            `json:"da_channel"`
	Electrode        string         `json:"electrode"`
	Stimulus         string         `json:"stimulus"`
	ClampMode        string         `json:"clamp_mode"`
	StartTime        time.Time      `json:"start_time"`
	SampleInterval   float64        `json:"sample_interval"`
	HoldingPotential notebook.Value `json:"holding_potential"`
	HoldingCurrent   notebook.Value `json:"holding_current"`
	BridgeBalance    notebook.Value `json:"bridge_balance"`
	LPFCutoff        notebook.Value `json:"lpf_cutoff"`
	PipetteOffset    notebook.Value `json:"pipette_offset"`
	NearestTestPulse *TestPulseRow  `json:"nearest_test_pulse,omitempty"`
}

// TestPulseRow holds the quantities of one test pulse on one headstage.
// Quantities that do not apply to the clamp mode are unset.
type TestPulseRow struct {
	Source            string         `json:"source"`
	Block             int            `json:"block"`
	Headstage         int            `json:"headstage"`
	ClampMode         string         `json:"clamp_mode"`
	Timestamp         time.Time      `json:"timestamp"`
	AccessResistance  notebook.Value `json:"access_resistance"`
	InputResistance   notebook.Value `json:"input_resistance"`
	BaselinePotential notebook.Value `json:"baseline_potential"`
	BaselineCurrent   notebook.Value `json:"baseline_current"`
	Amplitude         notebook.Value `json:"amplitude"`
}

// FailureRow records a channel or test pulse that could not be exported.
type FailureRow struct {
	SweepID   int    `json:"sweep_id"`
	ADChannel int    `json:"ad_channel"`
	Headstage int    `json:"headstage"`
	Error     string `json:"error"`
}

// ChannelLabel names a notebook channel index.
func ChannelLabel(channel int) string {
	if channel == notebook.GlobalChannel {
		return "global"
	}
	return "HS" + strconv.Itoa(channel)
}

// Build reconciles f and collects every row of the export.
func Build(ctx context.Context, f *experiment.File, opts Options) (*Report, error) {
	logger := logging.NewComponentLogger(opts.Logger, "export")
	report := &Report{
		Archive:     f.Name(),
		SessionID:   opts.SessionID,
		GeneratedAt: time.Now().UTC(),
	}
	if report.SessionID == "" {
		report.SessionID = uuid.NewString()
	}

	nb, err := f.Notebook(ctx)
	if err != nil {
		return nil, err
	}
	report.Fields = append([]string(nil), nb.Schema().Keys()...)
	if report.SkippedRows, err = f.SkippedRows(ctx); err != nil {
		return nil, err
	}
	for _, entry := range nb.Entries() {
		for c := 0; c < notebook.NumChannels; c++ {
			if c == notebook.GlobalChannel {
				if !opts.IncludeGlobalChannel {
					continue
				}
			} else if !entry.Channels[c].Recorded() {
				continue
			}
			report.Notebook = append(report.Notebook, NotebookRow{SweepID: entry.SweepID, Channel: c, Fields: entry.Channels[c]})
		}
	}

	blocks, err := f.TestPulseEntries(ctx)
	if err != nil {
		return nil, err
	}
	for i := range blocks {
		for _, tp := range experiment.BlockTestPulses(&blocks[i]) {
			report.TestPulses = append(report.TestPulses, testPulseRow(tp))
		}
	}

	sweeps, err := f.Sweeps(ctx)
	if err != nil {
		return nil, err
	}
	for _, sweep := range sweeps {
		for _, failure := range sweep.Failures() {
			row := FailureRow{SweepID: sweep.ID, ADChannel: failure.ADChannel, Headstage: -1, Error: failure.Err.Error()}
			var resErr *experiment.ResolutionError
			if errors.As(failure.Err, &resErr) {
				row.Headstage = resErr.Headstage
			}
			report.Failures = append(report.Failures, row)
		}
		for _, rec := range sweep.Recordings() {
			row := recordingRow(rec)
			tp, err := rec.NearestTestPulse(ctx)
			if err != nil {
				report.Failures = append(report.Failures, FailureRow{
					SweepID:   rec.SweepID,
					ADChannel: rec.ADChannel,
					Headstage: rec.Headstage,
					Error:     err.Error(),
				})
			} else if tp != nil {
				nearest := testPulseRow(tp)
				row.NearestTestPulse = &nearest
			}
			report.Recordings = append(report.Recordings, row)
		}
	}

	logger.Debug("export built",
		logging.Archive(report.Archive),
		logging.Int("notebook_rows", len(report.Notebook)),
		logging.Int("recordings", len(report.Recordings)),
		logging.Int("test_pulses", len(report.TestPulses)),
		logging.Int("failures", len(report.Failures)))
	return report, nil
}

func recordingRow(rec *experiment.Recording) RecordingRow {
	return RecordingRow{
		SweepID:          rec.SweepID,
		Headstage:        rec.Headstage,
		ADChannel:        rec.ADChannel,
		DAChannel:        rec.DAChannel,
		Electrode:        rec.Electrode(),
		Stimulus:         rec.StimulusDescription(),
		ClampMode:        rec.ClampMode().String(),
		StartTime:        rec.StartTime(),
		SampleInterval:   rec.SampleInterval(),
		HoldingPotential: rec.HoldingPotential(),
		HoldingCurrent:   rec.HoldingCurrent(),
		BridgeBalance:    rec.BridgeBalance(),
		LPFCutoff:        rec.LPFCutoff(),
		PipetteOffset:    rec.PipetteOffset(),
	}
}

func testPulseRow(tp *experiment.TestPulse) TestPulseRow {
	return TestPulseRow{
		Source:            tp.Source.String(),
		Block:             tp.BlockIndex,
		Headstage:         tp.Headstage,
		ClampMode:         tp.ClampMode.String(),
		Timestamp:         tp.StartTime,
		AccessResistance:  tp.AccessResistance(),
		InputResistance:   tp.InputResistance(),
		BaselinePotential: tp.BaselinePotential(),
		BaselineCurrent:   tp.BaselineCurrent(),
		Amplitude:         tp.Amplitude(),
	}
}
