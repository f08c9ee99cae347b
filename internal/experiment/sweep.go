package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"miesnwb/internal/logging"
	"miesnwb/internal/notebook"
	"miesnwb/internal/store"
)

// ChannelFailure records an AD channel that did not become a Recording.
type ChannelFailure struct {
	ADChannel int    `json:"ad_channel"`
	Key       string `json:"key"`
	Err       error  `json:"-"`
}

// MarshalJSON includes the error message.
func (f ChannelFailure) MarshalJSON() ([]byte, error) {
	type plain ChannelFailure
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		plain
		Error string `json:"error"`
	}{plain(f), msg})
}

// Sweep is one acquisition trial: a Recording per headstage that resolved,
// and a failure per AD channel that did not.
type Sweep struct {
	ID         int
	file       *File
	entry      *notebook.SweepEntry
	recordings map[int]*Recording
	headstages []int
	failures   []ChannelFailure
}

func buildSweep(ctx context.Context, f *File, nb *notebook.Notebook, id int) (*Sweep, error) {
	r, _, err := f.Reader(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := r.AcquisitionKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list acquisitions: %w", err)
	}
	var channels []store.ChannelKey
	for _, key := range keys {
		ck, err := store.ParseChannelKey(key)
		if err != nil || ck.Sweep != id || ck.Kind != store.KindAD {
			continue
		}
		channels = append(channels, ck)
	}
	if len(channels) == 0 {
		return nil, sweepNotFound(id)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Channel < channels[j].Channel })

	s := &Sweep{ID: id, file: f, recordings: make(map[int]*Recording)}
	s.entry, _ = nb.Sweep(id)
	resolver := NewChannelResolver(r)
	for _, ck := range channels {
		rec, err := newRecording(ctx, s, r, resolver, ck)
		if err == nil {
			if prev, dup := s.recordings[rec.Headstage]; dup {
				err = &ResolutionError{
					SweepID:   id,
					ADChannel: ck.Channel,
					Headstage: rec.Headstage,
					Reason:    fmt.Sprintf("headstage already recorded on AD%d", prev.ADChannel),
				}
			}
		}
		if err != nil {
			s.failures = append(s.failures, ChannelFailure{ADChannel: ck.Channel, Key: ck.String(), Err: err})
			logging.WarnWithContext(f.logger, "recording skipped", "resolution_failed",
				logging.Sweep(id),
				logging.Int(logging.FieldChannel, ck.Channel),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the electrode_name attributes of the sweep's AD and DA series"),
				logging.String(logging.FieldImpact, "the headstage is omitted from this sweep"))
			continue
		}
		s.recordings[rec.Headstage] = rec
		s.headstages = append(s.headstages, rec.Headstage)
		f.logger.Debug("recording resolved",
			logging.Sweep(id),
			logging.Headstage(rec.Headstage),
			logging.Int(logging.FieldChannel, ck.Channel),
			logging.String("clamp_mode", rec.ClampMode().String()))
	}
	sort.Ints(s.headstages)
	return s, nil
}

// File returns the file the sweep belongs to.
func (s *Sweep) File() *File { return s.file }

// Entry returns the reconciled notebook entry, or nil when the notebook has
// no record of this sweep.
func (s *Sweep) Entry() *notebook.SweepEntry { return s.entry }

// Headstages lists the headstages that have a Recording, ascending.
func (s *Sweep) Headstages() []int { return append([]int(nil), s.headstages...) }

// Recording returns the recording of a headstage.
func (s *Sweep) Recording(headstage int) (*Recording, bool) {
	rec, ok := s.recordings[headstage]
	return rec, ok
}

// Recordings returns every recording ordered by headstage.
func (s *Sweep) Recordings() []*Recording {
	out := make([]*Recording, 0, len(s.headstages))
	for _, h := range s.headstages {
		out = append(out, s.recordings[h])
	}
	return out
}

// Failures lists the AD channels that did not resolve.
func (s *Sweep) Failures() []ChannelFailure { return append([]ChannelFailure(nil), s.failures...) }

// StartTime is the notebook timestamp of the sweep, or the zero time.
func (s *Sweep) StartTime() time.Time {
	if s.entry == nil {
		return time.Time{}
	}
	return notebook.IgorTime(s.entry.Channels[0].Get(notebook.FieldTimeStamp).Raw())
}

// Data stacks the primary and command traces of every recording as
// [headstage][sample]{primary, command}, headstages ascending.
func (s *Sweep) Data(ctx context.Context) ([][][2]float64, error) {
	out := make([][][2]float64, 0, len(s.headstages))
	for _, rec := range s.Recordings() {
		primary, err := rec.Primary(ctx)
		if err != nil {
			return nil, err
		}
		command, err := rec.Command(ctx)
		if err != nil {
			return nil, err
		}
		if primary.Len() != command.Len() {
			return nil, fmt.Errorf("sweep %d headstage %d: primary has %d samples, command %d",
				s.ID, rec.Headstage, primary.Len(), command.Len())
		}
		ch := make([][2]float64, primary.Len())
		for i := range ch {
			ch[i] = [2]float64{primary.Data[i], command.Data[i]}
		}
		out = append(out, ch)
	}
	return out, nil
}

// PackSweepData stacks the data of several sweeps as
// [sweep][headstage][sample]{primary, command}. All sweeps must have the same
// number of recordings and samples.
func PackSweepData(ctx context.Context, sweeps []*Sweep) ([][][][2]float64, error) {
	out := make([][][][2]float64, 0, len(sweeps))
	for i, s := range sweeps {
		data, err := s.Data(ctx)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			if err := sameShape(out[0], data); err != nil {
				return nil, fmt.Errorf("sweep %d: %w", s.ID, err)
			}
		}
		out = append(out, data)
	}
	return out, nil
}

func sameShape(a, b [][][2]float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("has %d channels, want %d", len(b), len(a))
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return fmt.Errorf("channel %d has %d samples, want %d", i, len(b[i]), len(a[i]))
		}
	}
	return nil
}
