package notebook

import "strings"

// Notebook field names read by the reconciler and by recording metadata.
const (
	FieldSweepNum        = "SweepNum"
	FieldTimeStamp       = "TimeStamp"
	FieldEntrySourceType = "EntrySourceType"

	FieldClampMode          = "Clamp Mode"
	FieldHoldingPotential   = "V-Clamp Holding Level"
	FieldHoldingCurrent     = "I-Clamp Holding Level"
	FieldBridgeBalanceOn    = "Bridge Bal Enable"
	FieldBridgeBalance      = "Bridge Bal Value"
	FieldLPFCutoff          = "LPF Cutoff"
	FieldPipetteOffset      = "Pipette Offset"
	FieldTPInsert           = "TP Insert Checkbox"
	FieldDelayOnsetAuto     = "Delay onset auto"
	FieldDelayOnsetUser     = "Delay onset user"
	FieldDelayTermination   = "Delay termination"
	FieldTPBaselineVm       = "TP Baseline Vm"
	FieldTPBaselinePA       = "TP Baseline pA"
	FieldTPPeakResistance   = "TP Peak Resistance"
	FieldTPSteadyResistance = "TP Steady State Resistance"
	FieldTPBaselineFraction = "TP Baseline Fraction"
	FieldTPAmplitudeVC      = "TP Amplitude VC"
	FieldTPAmplitudeIC      = "TP Amplitude IC"
	FieldTPPulseDuration    = "TP Pulse Duration"
)

// asyncSensorPrefix marks auxiliary sensor readings (temperature and the like)
// that are recorded once per sweep in channel 0.
const asyncSensorPrefix = "Async AD "

// requiredFields must exist in every table, whichever classification path a
// row ends up taking.
var requiredFields = []string{
	FieldSweepNum,
	FieldTimeStamp,
	FieldTPPeakResistance,
	FieldTPPulseDuration,
}

// TestPulseStimulusFields are the test pulse parameters stored in the global
// channel of a test pulse block.
var TestPulseStimulusFields = []string{
	FieldTPBaselineFraction,
	FieldTPAmplitudeVC,
	FieldTPAmplitudeIC,
	FieldTPPulseDuration,
}

// IsAsyncSensorField reports whether a field holds a channel-invariant
// auxiliary sensor value.
func IsAsyncSensorField(name string) bool {
	return strings.HasPrefix(name, asyncSensorPrefix)
}
