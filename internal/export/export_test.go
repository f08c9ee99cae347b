package export_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"miesnwb/internal/experiment"
	"miesnwb/internal/export"
	"miesnwb/internal/store"
	ts "miesnwb/internal/testsupport"
)

func buildReport(t *testing.T, b *ts.RecordingBuilder, opts export.Options) *export.Report {
	t.Helper()
	f := experiment.Open(experiment.ReaderOpener(b.Memory(t)), experiment.WithName("cell01"))
	t.Cleanup(func() { _ = f.Close() })
	report, err := export.Build(context.Background(), f, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return report
}

func TestBuildCollectsRows(t *testing.T) {
	report := buildReport(t, ts.SampleSession(), export.Options{SessionID: "session-1"})

	if report.Archive != "cell01" || report.SessionID != "session-1" || report.GeneratedAt.IsZero() {
		t.Fatalf("unexpected header: %+v", report)
	}
	if len(report.Fields) != len(ts.DefaultKeys) {
		t.Fatalf("expected %d fields, got %d", len(ts.DefaultKeys), len(report.Fields))
	}

	type channelRow struct{ sweep, channel int }
	var got []channelRow
	for _, row := range report.Notebook {
		got = append(got, channelRow{row.SweepID, row.Channel})
	}
	want := []channelRow{{0, 0}, {0, 1}, {1, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("notebook rows = %v, want %v", got, want)
	}

	if len(report.Recordings) != 3 {
		t.Fatalf("expected 3 recordings, got %d", len(report.Recordings))
	}
	rec := report.Recordings[1]
	if rec.SweepID != 0 || rec.Headstage != 1 || rec.ClampMode != "ic" || rec.Electrode != ts.Electrode(1) {
		t.Fatalf("unexpected recording row: %+v", rec)
	}
	if got := rec.HoldingCurrent.Or(0); math.Abs(got+40e-12) > 1e-18 {
		t.Errorf("expected holding current in amps, got %v", rec.HoldingCurrent)
	}
	if rec.NearestTestPulse == nil || rec.NearestTestPulse.Block != 0 || rec.NearestTestPulse.Source != "standalone" {
		t.Fatalf("expected nearest standalone pulse, got %+v", rec.NearestTestPulse)
	}

	if len(report.TestPulses) != 2 {
		t.Fatalf("expected 2 test pulse rows, got %d", len(report.TestPulses))
	}
	vc, ic := report.TestPulses[0], report.TestPulses[1]
	if vc.ClampMode != "vc" || !vc.AccessResistance.Is(9e6) || !vc.InputResistance.Is(180e6) {
		t.Errorf("unexpected voltage clamp pulse: %+v", vc)
	}
	if vc.BaselinePotential.Valid {
		t.Errorf("baseline potential does not apply in voltage clamp: %v", vc.BaselinePotential)
	}
	if ic.ClampMode != "ic" || ic.BaselineCurrent.Valid || !ic.BaselinePotential.Valid {
		t.Errorf("unexpected current clamp pulse: %+v", ic)
	}
	if len(report.Failures) != 0 {
		t.Errorf("unexpected failures: %+v", report.Failures)
	}
}

func TestBuildGlobalChannelAndSessionDefault(t *testing.T) {
	report := buildReport(t, ts.SampleSession(), export.Options{IncludeGlobalChannel: true})
	if report.SessionID == "" {
		t.Fatal("expected generated session id")
	}
	globals := 0
	for _, row := range report.Notebook {
		if row.ChannelLabel() == "global" {
			globals++
		}
	}
	if globals != 2 || len(report.Notebook) != 5 {
		t.Fatalf("expected one global row per sweep, got %d of %d rows", globals, len(report.Notebook))
	}
}

func TestBuildReportsFailures(t *testing.T) {
	b := ts.SampleSession().Acquisition(store.ChannelKey{Sweep: 0, Kind: store.KindAD, Channel: 2}.String(), &store.Series{
		Data:           []float64{1, 2, 3, 4},
		SampleInterval: ts.SessionDT,
		ElectrodeName:  ts.Electrode(2),
	})
	report := buildReport(t, b, export.Options{})
	if len(report.Recordings) != 3 {
		t.Fatalf("sibling recordings must survive, got %d", len(report.Recordings))
	}
	if len(report.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", report.Failures)
	}
	if f := report.Failures[0]; f.SweepID != 0 || f.ADChannel != 2 || f.Headstage != 2 || f.Error == "" {
		t.Fatalf("unexpected failure row: %+v", f)
	}
}

func TestWriteWorkbook(t *testing.T) {
	report := buildReport(t, ts.SampleSession(), export.Options{SessionID: "session-1"})

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, report); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	wantSheets := []string{export.SheetMetadata, export.SheetNotebook, export.SheetRecordings, export.SheetTestPulses}
	if got := f.GetSheetList(); !reflect.DeepEqual(got, wantSheets) {
		t.Fatalf("sheets = %v, want %v", got, wantSheets)
	}

	meta, err := f.GetRows(export.SheetMetadata)
	if err != nil {
		t.Fatalf("GetRows metadata: %v", err)
	}
	if len(meta) == 0 || !reflect.DeepEqual(meta[0], []string{"Key", "Value"}) {
		t.Fatalf("unexpected metadata header: %v", meta)
	}
	values := make(map[string]string, len(meta))
	for _, row := range meta[1:] {
		if len(row) == 2 {
			values[row[0]] = row[1]
		}
	}
	if values["Session"] != "session-1" || values["Recordings"] != "3" || values["Test Pulses"] != "2" || values["Archive"] != "cell01" {
		t.Fatalf("unexpected metadata rows: %v", meta)
	}

	nb, err := f.GetRows(export.SheetNotebook)
	if err != nil {
		t.Fatalf("GetRows notebook: %v", err)
	}
	if len(nb) != 4 {
		t.Fatalf("expected header plus 3 notebook rows, got %d", len(nb))
	}
	if len(nb[0]) != len(ts.DefaultKeys)+2 || nb[0][2] != ts.DefaultKeys[0] {
		t.Fatalf("unexpected notebook header: %v", nb[0])
	}
	if nb[2][0] != "0" || nb[2][1] != "HS1" {
		t.Fatalf("unexpected notebook row: %v", nb[2])
	}

	recs, err := f.GetRows(export.SheetRecordings)
	if err != nil {
		t.Fatalf("GetRows recordings: %v", err)
	}
	if len(recs) != 4 || recs[1][4] != ts.Electrode(0) || recs[1][5] != ts.StimulusName || recs[1][6] != "vc" {
		t.Fatalf("unexpected recording rows: %v", recs)
	}

	tps, err := f.GetRows(export.SheetTestPulses)
	if err != nil {
		t.Fatalf("GetRows test pulses: %v", err)
	}
	if len(tps) != 3 || tps[2][2] != "ic" {
		t.Fatalf("unexpected test pulse rows: %v", tps)
	}
}

func TestSaveWorkbookWithFailures(t *testing.T) {
	b := ts.SampleSession().Acquisition(store.ChannelKey{Sweep: 1, Kind: store.KindAD, Channel: 5}.String(), &store.Series{
		Data:           []float64{1},
		SampleInterval: ts.SessionDT,
		ElectrodeName:  "not-an-electrode",
	})
	report := buildReport(t, b, export.Options{})

	path := filepath.Join(t.TempDir(), "exports", "cell01.xlsx")
	if err := export.SaveWorkbook(path, report); err != nil {
		t.Fatalf("SaveWorkbook: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(export.SheetFailures)
	if err != nil {
		t.Fatalf("GetRows failures: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "1" || rows[1][1] != "5" || rows[1][2] != "-1" {
		t.Fatalf("unexpected failure rows: %v", rows)
	}
}

func TestWriteJSON(t *testing.T) {
	report := buildReport(t, ts.SampleSession(), export.Options{SessionID: "session-1"})

	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, report); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded struct {
		SessionID  string `json:"session_id"`
		TestPulses []struct {
			Headstage         int      `json:"headstage"`
			AccessResistance  *float64 `json:"access_resistance"`
			BaselinePotential *float64 `json:"baseline_potential"`
		} `json:"test_pulses"`
		Notebook []struct {
			Fields map[string]*float64 `json:"fields"`
		} `json:"notebook"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.SessionID != "session-1" || len(decoded.TestPulses) != 2 {
		t.Fatalf("unexpected export: %s", buf.String())
	}
	tp := decoded.TestPulses[0]
	if tp.AccessResistance == nil || *tp.AccessResistance != 9e6 {
		t.Fatalf("unexpected access resistance: %v", tp.AccessResistance)
	}
	if tp.BaselinePotential != nil {
		t.Fatalf("inapplicable quantity should be null, got %v", *tp.BaselinePotential)
	}
	if v := decoded.Notebook[0].Fields["V-Clamp Holding Level"]; v == nil || *v != -70 {
		t.Fatalf("unexpected holding level in notebook fields: %v", v)
	}
}
