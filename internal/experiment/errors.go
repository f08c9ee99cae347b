package experiment

import (
	"errors"
	"fmt"
)

// ErrResolution marks a recording whose channels could not be matched.
var ErrResolution = errors.New("channel resolution failed")

// ResolutionError reports an AD channel that cannot become a Recording: its
// electrode name is unusable, no DA channel shares it, or the sweep has no
// notebook entry. It never affects sibling recordings.
type ResolutionError struct {
	SweepID   int
	ADChannel int
	// Headstage is -1 when the electrode name could not be parsed.
	Headstage int
	Reason    string
	Err       error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("sweep %d AD%d", e.SweepID, e.ADChannel)
	if e.Headstage >= 0 {
		msg += fmt.Sprintf(" (headstage %d)", e.Headstage)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrResolution, e.Err}
	}
	return []error{ErrResolution}
}

// ErrorKind classifies the error for CLI exit handling.
func (e *ResolutionError) ErrorKind() string { return "not_found" }
