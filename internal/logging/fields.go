package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. "resolution_failed").
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldSessionID tags every line emitted by one CLI invocation.
	FieldSessionID = "session_id"
	// FieldArchive is the archive path or name being read.
	FieldArchive = "archive"
	// FieldSweepID is the notebook sweep number.
	FieldSweepID = "sweep_id"
	// FieldHeadstage is the amplifier headstage (device) index.
	FieldHeadstage = "headstage"
	// FieldChannel is a raw AD/DA channel key.
	FieldChannel = "channel"
)
