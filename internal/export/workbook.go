package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"miesnwb/internal/notebook"
)

// Sheet names in the order they appear in the workbook.
const (
	SheetMetadata   = "Metadata"
	SheetNotebook   = "Notebook"
	SheetRecordings = "Recordings"
	SheetTestPulses = "Test Pulses"
	SheetFailures   = "Failures"
)

var recordingHeader = []any{
	"Sweep", "Headstage", "AD", "DA", "Electrode", "Stimulus", "Clamp Mode", "Start Time",
	"Sample Interval (s)", "Holding Potential (V)", "Holding Current (A)", "Bridge Balance (Ohm)",
	"LPF Cutoff (Hz)", "Pipette Offset (V)", "Nearest TP Source", "Nearest TP Access (Ohm)",
	"Nearest TP Input (Ohm)",
}

var testPulseHeader = []any{
	"Block", "Headstage", "Clamp Mode", "Timestamp", "Access Resistance (Ohm)",
	"Input Resistance (Ohm)", "Baseline Potential (V)", "Baseline Current (A)", "Amplitude",
}

var failureHeader = []any{"Sweep", "AD", "Headstage", "Error"}

// WriteWorkbook renders r as an xlsx workbook to w.
func WriteWorkbook(w io.Writer, r *Report) error {
	f, err := newWorkbook(r)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveWorkbook renders r as an xlsx workbook at path.
func SaveWorkbook(path string, r *Report) error {
	f, err := newWorkbook(r)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

type sheetWriter struct {
	f      *excelize.File
	header int
}

func newWorkbook(r *Report) (*excelize.File, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	sw := &sheetWriter{f: f, header: header}

	if err := sw.build(r); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (sw *sheetWriter) build(r *Report) error {
	if err := sw.f.SetSheetName("Sheet1", SheetMetadata); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := sw.f.SetDocProps(&excelize.DocProperties{
		Creator:     "miesnwb",
		Title:       r.Archive,
		Identifier:  r.SessionID,
		Created:     r.GeneratedAt.Format(time.RFC3339),
		Description: "Reconciled lab notebook and recording metadata",
	}); err != nil {
		return fmt.Errorf("document properties: %w", err)
	}

	metadata := [][]any{
		{"Archive", r.Archive},
		{"Session", r.SessionID},
		{"Generated", r.GeneratedAt.Format(time.RFC3339)},
		{"Sweeps", countSweeps(r.Recordings)},
		{"Recordings", len(r.Recordings)},
		{"Test Pulses", len(r.TestPulses)},
		{"Skipped Rows", r.SkippedRows},
		{"Failures", len(r.Failures)},
	}
	if err := sw.rows(SheetMetadata, []any{"Key", "Value"}, metadata); err != nil {
		return err
	}

	nbHeader := make([]any, 0, len(r.Fields)+2)
	nbHeader = append(nbHeader, "Sweep", "Channel")
	for _, name := range r.Fields {
		nbHeader = append(nbHeader, name)
	}
	nbRows := make([][]any, 0, len(r.Notebook))
	for _, row := range r.Notebook {
		cells := make([]any, 0, len(nbHeader))
		cells = append(cells, row.SweepID, row.ChannelLabel())
		for _, name := range r.Fields {
			cells = append(cells, cell(row.Fields.Get(name)))
		}
		nbRows = append(nbRows, cells)
	}
	if err := sw.sheet(SheetNotebook, nbHeader, nbRows); err != nil {
		return err
	}

	recRows := make([][]any, 0, len(r.Recordings))
	for _, rec := range r.Recordings {
		cells := []any{
			rec.SweepID, rec.Headstage, rec.ADChannel, rec.DAChannel, rec.Electrode, rec.Stimulus,
			rec.ClampMode, timestamp(rec.StartTime), rec.SampleInterval, cell(rec.HoldingPotential),
			cell(rec.HoldingCurrent), cell(rec.BridgeBalance), cell(rec.LPFCutoff), cell(rec.PipetteOffset),
		}
		if tp := rec.NearestTestPulse; tp != nil {
			cells = append(cells, pulseLabel(*tp), cell(tp.AccessResistance), cell(tp.InputResistance))
		}
		recRows = append(recRows, cells)
	}
	if err := sw.sheet(SheetRecordings, recordingHeader, recRows); err != nil {
		return err
	}

	tpRows := make([][]any, 0, len(r.TestPulses))
	for _, tp := range r.TestPulses {
		tpRows = append(tpRows, []any{
			tp.Block, tp.Headstage, tp.ClampMode, timestamp(tp.Timestamp), cell(tp.AccessResistance),
			cell(tp.InputResistance), cell(tp.BaselinePotential), cell(tp.BaselineCurrent), cell(tp.Amplitude),
		})
	}
	if err := sw.sheet(SheetTestPulses, testPulseHeader, tpRows); err != nil {
		return err
	}

	if len(r.Failures) == 0 {
		return nil
	}
	failRows := make([][]any, 0, len(r.Failures))
	for _, fr := range r.Failures {
		failRows = append(failRows, []any{fr.SweepID, fr.ADChannel, fr.Headstage, fr.Error})
	}
	return sw.sheet(SheetFailures, failureHeader, failRows)
}

func (sw *sheetWriter) sheet(name string, header []any, rows [][]any) error {
	if _, err := sw.f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	return sw.rows(name, header, rows)
}

// rows writes a bold, frozen header row followed by rows.
func (sw *sheetWriter) rows(sheet string, header []any, rows [][]any) error {
	if err := sw.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	if err := sw.f.SetRowStyle(sheet, 1, 1, sw.header); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	if err := sw.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("%s panes: %w", sheet, err)
	}
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.f.SetSheetRow(sheet, ref, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// cell maps an unset value to an empty cell.
func cell(v notebook.Value) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func pulseLabel(tp TestPulseRow) string {
	if tp.Block < 0 {
		return tp.Source
	}
	return tp.Source + " #" + strconv.Itoa(tp.Block)
}

func countSweeps(recs []RecordingRow) int {
	seen := make(map[int]struct{})
	for _, rec := range recs {
		seen[rec.SweepID] = struct{}{}
	}
	return len(seen)
}
