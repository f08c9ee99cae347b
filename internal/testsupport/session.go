package testsupport

import (
	"time"

	"miesnwb/internal/notebook"
)

// SessionStart is the acquisition time of sweep 0 in SampleSession.
var SessionStart = time.Date(2021, 3, 4, 9, 30, 0, 0, time.UTC)

// SessionDT is the sample interval used by SampleSession.
const SessionDT = 2e-5

// SampleSession returns a small but complete recording: sweep 0 with a
// voltage clamp headstage 0 and a current clamp headstage 1, sweep 1 with
// headstage 0 only, and one standalone test pulse recorded between them.
func SampleSession() *RecordingBuilder {
	at := func(d time.Duration) float64 { return notebook.IgorSeconds(SessionStart.Add(d)) }
	nb := NewNotebookBuilder().
		SweepRow(0, at(0), Cells{
			notebook.FieldClampMode:        {0: 0, 1: 1},
			notebook.FieldHoldingPotential: At(0, -70),
			notebook.FieldHoldingCurrent:   At(1, -40),
			notebook.FieldLPFCutoff:        Headstages(10000, 0, 1),
			"Async AD 0 [Temperature]":     At(0, 31.5),
		}).
		TestPulseRows(at(30*time.Second),
			Cells{
				notebook.FieldTPBaselineVm:       At(1, -68),
				notebook.FieldTPBaselinePA:       At(0, -15),
				notebook.FieldTPPeakResistance:   Headstages(9, 0, 1),
				notebook.FieldTPSteadyResistance: Headstages(180, 0, 1),
			},
			Cells{
				notebook.FieldTPPulseDuration:    Global(10),
				notebook.FieldTPBaselineFraction: Global(0.35),
				notebook.FieldTPAmplitudeVC:      Global(10),
			}).
		SweepRow(1, at(time.Minute), Cells{
			notebook.FieldClampMode:        At(0, 0),
			notebook.FieldHoldingPotential: At(0, -70),
		})

	return NewRecordingBuilder(nb).
		Channel(0, 0, SessionDT, []float64{1, 2, 3, 4}, []float64{0, 10, 10, 0}).
		Channel(0, 1, SessionDT, []float64{-70, -69, -68, -70}, []float64{0, 50, 50, 0}).
		Channel(1, 0, SessionDT, []float64{5, 6, 7, 8}, []float64{0, 0, 0, 0})
}
