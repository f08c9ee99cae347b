package experiment

import (
	"math"
	"time"
)

// Trace names.
const (
	TracePrimary = "primary"
	TraceCommand = "command"
)

// Trace is a scaled sample array of one recording.
type Trace struct {
	Name           string
	Units          string
	SampleInterval float64
	StartTime      time.Time
	Data           []float64
}

// Len returns the number of samples.
func (t *Trace) Len() int { return len(t.Data) }

// Duration returns the time covered by the samples.
func (t *Trace) Duration() time.Duration {
	return time.Duration(float64(len(t.Data)) * t.SampleInterval * float64(time.Second))
}

// TimeAt returns the acquisition time of sample i.
func (t *Trace) TimeAt(i int) time.Time {
	return t.StartTime.Add(time.Duration(float64(i) * t.SampleInterval * float64(time.Second)))
}

// Mean averages the samples in w, or NaN for an empty window.
func (t *Trace) Mean(w Window) float64 {
	start, stop := clamp(w.Start, 0, len(t.Data)), clamp(w.Stop, 0, len(t.Data))
	if stop <= start {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range t.Data[start:stop] {
		sum += v
	}
	return sum / float64(stop-start)
}

// scaleSamples returns raw*scale + offset as a new slice.
func scaleSamples(raw []float64, scale, offset float64) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = v*scale + offset
	}
	return out
}

// traceCache holds a trace together with the store generation it was read
// through.
type traceCache struct {
	trace      *Trace
	generation uint64
}

func (c *traceCache) get(generation uint64) (*Trace, bool) {
	if c.trace == nil || c.generation != generation {
		return nil, false
	}
	return c.trace, true
}

func (c *traceCache) set(t *Trace, generation uint64) {
	c.trace = t
	c.generation = generation
}
