package experiment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"miesnwb/internal/store"
)

const electrodePrefix = "electrode_"

// ChannelResolver maps acquisition channels to headstages and finds the
// stimulus channel that drove each headstage. The DA electrode names of a
// sweep are read once, from series attributes only.
type ChannelResolver struct {
	reader store.Reader

	mu     sync.Mutex
	sweeps map[int]map[string]store.ChannelKey // sweep -> electrode -> DA key
}

// NewChannelResolver resolves against reader.
func NewChannelResolver(reader store.Reader) *ChannelResolver {
	return &ChannelResolver{reader: reader, sweeps: make(map[int]map[string]store.ChannelKey)}
}

// HeadstageOf parses an electrode name of the form "electrode_<n>".
func HeadstageOf(electrode string) (int, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(electrode), electrodePrefix)
	if !ok {
		return 0, fmt.Errorf("electrode name %q lacks the %q prefix", electrode, electrodePrefix)
	}
	h, err := strconv.Atoi(rest)
	if err != nil || h < 0 {
		return 0, fmt.Errorf("electrode name %q has no headstage number", electrode)
	}
	return h, nil
}

// Stimulus returns the key of the DA series in sweep whose electrode name
// matches electrode. DA keys are scanned in sorted order and the first match
// wins. No match is an error; an arbitrary channel is never substituted.
func (r *ChannelResolver) Stimulus(ctx context.Context, sweep int, electrode string) (store.ChannelKey, error) {
	electrodes, err := r.stimulusElectrodes(ctx, sweep)
	if err != nil {
		return store.ChannelKey{}, err
	}
	if ck, ok := electrodes[electrode]; ok {
		return ck, nil
	}
	return store.ChannelKey{}, fmt.Errorf("no DA channel of sweep %d has electrode %q", sweep, electrode)
}

func (r *ChannelResolver) stimulusElectrodes(ctx context.Context, sweep int) (map[string]store.ChannelKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if electrodes, ok := r.sweeps[sweep]; ok {
		return electrodes, nil
	}

	keys, err := r.reader.StimulusKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stimulus channels: %w", err)
	}
	electrodes := make(map[string]store.ChannelKey)
	for _, key := range keys {
		ck, err := store.ParseChannelKey(key)
		if err != nil || ck.Sweep != sweep || ck.Kind != store.KindDA {
			continue
		}
		info, err := r.reader.StimulusInfo(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read stimulus %s: %w", key, err)
		}
		if _, seen := electrodes[info.ElectrodeName]; !seen {
			electrodes[info.ElectrodeName] = ck
		}
	}
	r.sweeps[sweep] = electrodes
	return electrodes, nil
}
