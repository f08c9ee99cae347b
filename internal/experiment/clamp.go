package experiment

import "miesnwb/internal/notebook"

// ClampMode is the amplifier mode of a recording or test pulse.
type ClampMode int

const (
	VoltageClamp ClampMode = iota
	CurrentClamp
)

func (m ClampMode) String() string {
	if m == VoltageClamp {
		return "vc"
	}
	return "ic"
}

// Name is the long form used in tables.
func (m ClampMode) Name() string {
	if m == VoltageClamp {
		return "voltage clamp"
	}
	return "current clamp"
}

// clampModeOf maps the raw "Clamp Mode" field: 0 is voltage clamp, anything
// else (including unset) current clamp.
func clampModeOf(v notebook.Value) ClampMode {
	if v.Is(0) {
		return VoltageClamp
	}
	return CurrentClamp
}

// Quantity is a value derived from a test pulse.
type Quantity int

const (
	AccessResistance Quantity = iota
	InputResistance
	BaselinePotential
	BaselineCurrent
)

func (q Quantity) String() string {
	switch q {
	case AccessResistance:
		return "access_resistance"
	case InputResistance:
		return "input_resistance"
	case BaselinePotential:
		return "baseline_potential"
	case BaselineCurrent:
		return "baseline_current"
	default:
		return "unknown"
	}
}

// applicability lists the clamp modes in which each quantity is measured.
var applicability = map[Quantity][2]bool{
	//                   VoltageClamp, CurrentClamp
	AccessResistance:  {true, false},
	InputResistance:   {true, true},
	BaselinePotential: {false, true},
	BaselineCurrent:   {true, false},
}

// Applies reports whether q is measured in mode m.
func (m ClampMode) Applies(q Quantity) bool {
	modes, ok := applicability[q]
	return ok && modes[m]
}

// Unit scale factors from notebook and raw trace units to SI.
const (
	picoampsToAmps     = 1e-12
	millivoltsToVolts  = 1e-3
	megaohmsToOhms     = 1e6
	millisecondsToSecs = 1e-3
)

// primaryScale converts stored primary samples: pA in voltage clamp, mV in
// current clamp.
func (m ClampMode) primaryScale() float64 {
	if m == VoltageClamp {
		return picoampsToAmps
	}
	return millivoltsToVolts
}

// commandScale converts stored command samples, which use the opposite unit.
func (m ClampMode) commandScale() float64 {
	if m == VoltageClamp {
		return millivoltsToVolts
	}
	return picoampsToAmps
}

// PrimaryUnits is the SI unit of the primary trace.
func (m ClampMode) PrimaryUnits() string {
	if m == VoltageClamp {
		return "A"
	}
	return "V"
}

// CommandUnits is the SI unit of the command trace.
func (m ClampMode) CommandUnits() string {
	if m == VoltageClamp {
		return "V"
	}
	return "A"
}
