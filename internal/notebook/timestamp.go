package notebook

import (
	"math"
	"time"
)

// igorEpochOffset is the number of seconds between 1904-01-01 and 1970-01-01.
const igorEpochOffset = 2082844800

// IgorTime converts a timestamp in seconds since 1904-01-01 to a UTC time.
// The stored value is already UTC; no timezone adjustment is applied. NaN and
// infinite values map to the zero time.
func IgorTime(seconds float64) time.Time {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return time.Time{}
	}
	whole, frac := math.Modf(seconds)
	nanos := int64(math.Round(frac * 1e9))
	return time.Unix(int64(whole)-igorEpochOffset, nanos).UTC()
}

// IgorSeconds is the inverse of IgorTime.
func IgorSeconds(t time.Time) float64 {
	return float64(t.Unix()+igorEpochOffset) + float64(t.Nanosecond())/1e9
}
