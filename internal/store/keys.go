package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Channel kinds as they appear in series keys.
const (
	KindAD = "AD"
	KindDA = "DA"
)

// ChannelKey identifies a raw series, written as "data_00012_AD3".
type ChannelKey struct {
	Sweep   int
	Kind    string
	Channel int
}

func (k ChannelKey) String() string {
	return fmt.Sprintf("data_%05d_%s%d", k.Sweep, k.Kind, k.Channel)
}

// ParseChannelKey splits a raw series key into sweep, kind, and hardware
// channel. Keys of any other shape are rejected.
func ParseChannelKey(key string) (ChannelKey, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 || parts[0] != "data" {
		return ChannelKey{}, fmt.Errorf("channel key %q: want data_<sweep>_<AD|DA><n>", key)
	}
	sweep, err := strconv.Atoi(parts[1])
	if err != nil || sweep < 0 {
		return ChannelKey{}, fmt.Errorf("channel key %q: invalid sweep number", key)
	}
	kind := parts[2]
	if len(kind) < 3 || (kind[:2] != KindAD && kind[:2] != KindDA) {
		return ChannelKey{}, fmt.Errorf("channel key %q: unknown channel kind", key)
	}
	channel, err := strconv.Atoi(kind[2:])
	if err != nil || channel < 0 {
		return ChannelKey{}, fmt.Errorf("channel key %q: invalid channel number", key)
	}
	return ChannelKey{Sweep: sweep, Kind: kind[:2], Channel: channel}, nil
}
