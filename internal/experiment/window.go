package experiment

import (
	"math"

	"miesnwb/internal/notebook"
)

// Window is a half-open sample range [Start, Stop).
type Window struct {
	Start int `json:"start"`
	Stop  int `json:"stop"`
}

// Len returns the number of samples in the window.
func (w Window) Len() int { return w.Stop - w.Start }

// TestPulseTiming holds the durations, in seconds, of an inserted test pulse.
type TestPulseTiming struct {
	Pulse    float64 `json:"pulse"`
	Baseline float64 `json:"baseline"`
	Total    float64 `json:"total"`
}

// InsertedTiming derives the baseline and total durations from the pulse
// duration (ms) and the baseline fraction. It fails when either is unset or
// the fraction leaves no room for the pulse.
func InsertedTiming(pulseMillis, baselineFraction notebook.Value) (TestPulseTiming, bool) {
	if !pulseMillis.Valid || !baselineFraction.Valid {
		return TestPulseTiming{}, false
	}
	denom := 1 - 2*baselineFraction.Float64
	if denom <= 0 || pulseMillis.Float64 <= 0 {
		return TestPulseTiming{}, false
	}
	pulse := pulseMillis.Float64 * millisecondsToSecs
	baseline := pulse / denom
	return TestPulseTiming{
		Pulse:    pulse,
		Baseline: baseline,
		Total:    pulse + 2*baseline,
	}, true
}

// Window returns the sample window [0, round(total/dt)).
func (t TestPulseTiming) Window(dt float64) Window {
	return Window{Start: 0, Stop: samples(t.Total, dt)}
}

func samples(seconds, dt float64) int {
	if dt <= 0 {
		return 0
	}
	return int(math.Round(seconds / dt))
}

// Region is a baseline sample range. An open region runs from Start to the
// end of the recording, and a negative Start counts back from the end.
type Region struct {
	Start int  `json:"start"`
	Stop  int  `json:"stop,omitempty"`
	Open  bool `json:"open,omitempty"`
}

// Bounds resolves the region against a trace of n samples, clamped to
// [0, n].
func (r Region) Bounds(n int) (int, int) {
	start, stop := r.Start, r.Stop
	if start < 0 {
		start += n
	}
	if r.Open {
		stop = n
	}
	return clamp(start, 0, n), clamp(stop, 0, n)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// baselineRegions derives the onset and trailing baseline regions from the
// notebook delays (ms). Unset delays count as zero; bounds are rounded to
// the nearest sample.
func baselineRegions(entry notebook.Fields, dt float64) []Region {
	var regions []Region
	onsetAuto := entry.Get(notebook.FieldDelayOnsetAuto).Or(0) * millisecondsToSecs
	onsetUser := entry.Get(notebook.FieldDelayOnsetUser).Or(0) * millisecondsToSecs
	if onsetUser > 0 {
		regions = append(regions, Region{
			Start: samples(onsetAuto, dt),
			Stop:  samples(onsetAuto+onsetUser, dt),
		})
	}
	if term := entry.Get(notebook.FieldDelayTermination).Or(0) * millisecondsToSecs; term > 0 {
		regions = append(regions, Region{Start: -samples(term, dt), Open: true})
	}
	return regions
}
