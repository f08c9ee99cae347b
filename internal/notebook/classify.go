package notebook

import "math"

// Kind is the record type a physical row starts.
type Kind int

const (
	// Unclassified rows are neither sweep nor test pulse records and are
	// dropped.
	Unclassified Kind = iota
	// SweepRecord rows contribute to the sweep named by their sweep number.
	SweepRecord
	// TestPulseRecord rows start a two-row standalone test pulse block.
	TestPulseRecord
)

func (k Kind) String() string {
	switch k {
	case SweepRecord:
		return "sweep"
	case TestPulseRecord:
		return "test_pulse"
	default:
		return "unclassified"
	}
}

// Columns holds the field positions classification needs. EntrySourceType is
// -1 when the table predates that column.
type Columns struct {
	SweepNum         int
	TimeStamp        int
	EntrySourceType  int
	TPPeakResistance int
	TPPulseDuration  int
}

// ResolveColumns looks up the required fields, plus any extra names the caller
// insists on, and fails with a SchemaError naming the first missing one.
func ResolveColumns(s *Schema, extra ...string) (Columns, error) {
	for _, name := range append(append([]string(nil), requiredFields...), extra...) {
		if _, ok := s.Index(name); !ok {
			return Columns{}, &SchemaError{Field: name}
		}
	}
	if s.Len() < identityFieldCount {
		return Columns{}, &SchemaError{Reason: "table has fewer fields than the sweep identity block"}
	}
	cols := Columns{EntrySourceType: -1}
	cols.SweepNum, _ = s.Index(FieldSweepNum)
	cols.TimeStamp, _ = s.Index(FieldTimeStamp)
	cols.TPPeakResistance, _ = s.Index(FieldTPPeakResistance)
	cols.TPPulseDuration, _ = s.Index(FieldTPPulseDuration)
	if i, ok := s.Index(FieldEntrySourceType); ok {
		cols.EntrySourceType = i
	}
	return cols, nil
}

// Classify decides what the row at position i starts and how many physical
// rows the record spans. It reads at most rows[i] and rows[i+1].
//
// With a finite EntrySourceType, 0 marks a sweep row and anything else the
// first row of a test pulse pair. Without one, a row with a finite peak
// resistance followed by a row with a finite pulse duration is a test pulse
// pair; otherwise a finite sweep number makes it a sweep row. A pair cannot
// start on the last row, so the last row is Unclassified unless its
// discriminant says sweep.
func Classify(rows []Row, i int, cols Columns) (Kind, int) {
	row := rows[i]
	last := i+1 >= len(rows)
	sweepNumOK := isFinite(row[cols.SweepNum][0])

	if cols.EntrySourceType >= 0 {
		if src := row[cols.EntrySourceType][0]; isFinite(src) {
			switch {
			case src != 0:
				if last {
					return Unclassified, 1
				}
				return TestPulseRecord, 2
			case sweepNumOK:
				return SweepRecord, 1
			default:
				return Unclassified, 1
			}
		}
	}

	if last {
		return Unclassified, 1
	}
	if anyFinite(row[cols.TPPeakResistance]) && anyFinite(rows[i+1][cols.TPPulseDuration]) {
		return TestPulseRecord, 2
	}
	if sweepNumOK {
		return SweepRecord, 1
	}
	return Unclassified, 1
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func anyFinite(values []float64) bool {
	for _, v := range values {
		if isFinite(v) {
			return true
		}
	}
	return false
}
