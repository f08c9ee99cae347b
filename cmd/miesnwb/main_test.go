package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"miesnwb/internal/export"
	"miesnwb/internal/notebook"
	"miesnwb/internal/testsupport"
)

func TestCLIImportAndDump(t *testing.T) {
	env := setupCLITestEnv(t)
	dump := env.writeSampleDump(t)

	out, _, err := runCLI(t, []string{"import", dump, "rig1"}, env.configPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	archive := filepath.Join(env.cfg.Paths.ArchiveDir, "rig1.nwbdb")
	requireContains(t, out, archive)
	requireContains(t, out, "4 rows")
	requireContains(t, out, "3 acquisition")
	requireContains(t, out, "2 sweeps, 1 test pulses")

	if _, _, err := runCLI(t, []string{"import", dump, "rig1"}, env.configPath); err == nil {
		t.Fatal("expected second import without --overwrite to fail")
	} else {
		requireContains(t, err.Error(), "--overwrite")
	}
	if _, _, err := runCLI(t, []string{"import", "--overwrite", dump, "rig1"}, env.configPath); err != nil {
		t.Fatalf("import --overwrite: %v", err)
	}

	target := filepath.Join(env.baseDir, "roundtrip.json")
	out, _, err = runCLI(t, []string{"dump", "rig1.nwbdb", "--out", target}, env.configPath)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	requireContains(t, out, "Wrote dump to")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	requireContains(t, string(data), `"Async AD 0 [Temperature]"`)
}

func TestCLIImportRejectsUnreconcilableNotebook(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithRequiredFields("Seal Resistance"))
	dump := env.writeSampleDump(t)

	out, _, err := runCLI(t, []string{"import", dump, "rig1"}, env.configPath)
	if err == nil {
		t.Fatal("expected import to fail on a notebook without a required field")
	}
	if !errors.Is(err, notebook.ErrSchema) {
		t.Fatalf("expected a schema error, got %v", err)
	}
	requireContains(t, out, "[ERROR]")
	requireContains(t, errorHint(err), "required field")

	archive := filepath.Join(env.cfg.Paths.ArchiveDir, "rig1.nwbdb")
	if _, statErr := os.Stat(archive); !errors.Is(statErr, fs.ErrNotExist) {
		t.Fatalf("rejected archive left on disk: %v", statErr)
	}
}

func TestCLISweepsAndNotebook(t *testing.T) {
	env := setupCLITestEnv(t)
	env.withSampleArchive(t, "rig1")

	out, _, err := runCLI(t, []string{"sweeps", "rig1.nwbdb"}, env.configPath)
	if err != nil {
		t.Fatalf("sweeps: %v", err)
	}
	requireContains(t, out, "2021-03-04 09:30:00")
	requireContains(t, out, "vc,ic")
	requireContains(t, out, "2021-03-04 09:31:00")

	out, _, err = runCLI(t, []string{"sweeps", "rig1.nwbdb", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("sweeps --json: %v", err)
	}
	var sweeps []sweepSummary
	if err := json.Unmarshal([]byte(out), &sweeps); err != nil {
		t.Fatalf("decode sweeps: %v", err)
	}
	if len(sweeps) != 2 || sweeps[0].SweepID != 0 || len(sweeps[0].Headstages) != 2 || sweeps[1].SweepID != 1 {
		t.Fatalf("unexpected sweeps: %+v", sweeps)
	}

	out, _, err = runCLI(t, []string{"notebook", "rig1.nwbdb", "--sweep", "0"}, env.configPath)
	if err != nil {
		t.Fatalf("notebook: %v", err)
	}
	requireContains(t, out, "Sweep 0")
	requireContains(t, out, "HS0")
	requireContains(t, out, "HS1")
	requireContains(t, out, "Global")
	requireContains(t, out, "Async AD 0 [Temperature]")
	requireContains(t, out, "31.5")
	if strings.Contains(out, "Sweep 1") {
		t.Fatalf("expected only sweep 0, got %q", out)
	}

	if _, _, err := runCLI(t, []string{"notebook", "rig1.nwbdb", "--sweep", "9"}, env.configPath); err == nil {
		t.Fatal("expected error for missing notebook sweep")
	}
}

func TestCLIRecordings(t *testing.T) {
	env := setupCLITestEnv(t)
	env.withSampleArchive(t, "rig1")

	out, _, err := runCLI(t, []string{"recordings", "rig1.nwbdb", "--sweep", "0"}, env.configPath)
	if err != nil {
		t.Fatalf("recordings: %v", err)
	}
	requireContains(t, out, "Voltage Clamp")
	requireContains(t, out, "Current Clamp")
	requireContains(t, out, "-70.00 mV")
	requireContains(t, out, "-40.00 pA")

	out, _, err = runCLI(t, []string{"recordings", "rig1.nwbdb", "-s", "1", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("recordings --json: %v", err)
	}
	var decoded struct {
		SweepID    int `json:"sweep_id"`
		Recordings []struct {
			Headstage      int      `json:"headstage"`
			ClampMode      string   `json:"clamp_mode"`
			HoldingCurrent *float64 `json:"holding_current"`
		} `json:"recordings"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode recordings: %v", err)
	}
	if decoded.SweepID != 1 || len(decoded.Recordings) != 1 {
		t.Fatalf("unexpected recordings: %+v", decoded)
	}
	rec := decoded.Recordings[0]
	if rec.Headstage != 0 || rec.ClampMode != "vc" || rec.HoldingCurrent != nil {
		t.Fatalf("unexpected recording: %+v", rec)
	}

	_, _, err = runCLI(t, []string{"recordings", "rig1.nwbdb", "--sweep", "7"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing sweep")
	}
	requireContains(t, errorHint(err), "miesnwb sweeps")

	if _, _, err := runCLI(t, []string{"recordings", "rig1.nwbdb"}, env.configPath); err == nil {
		t.Fatal("expected --sweep to be required")
	}
}

func TestCLITestPulses(t *testing.T) {
	env := setupCLITestEnv(t)
	env.withSampleArchive(t, "rig1")

	out, _, err := runCLI(t, []string{"testpulses", "rig1.nwbdb"}, env.configPath)
	if err != nil {
		t.Fatalf("testpulses: %v", err)
	}
	requireContains(t, out, "2021-03-04 09:30:30")
	requireContains(t, out, "9.00 MΩ")
	requireContains(t, out, "180.00 MΩ")
	requireContains(t, out, "-15.00 pA")
	requireContains(t, out, "-68.00 mV")

	out, _, err = runCLI(t, []string{"nearest-tp", "rig1.nwbdb", "--sweep", "1", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("nearest-tp: %v", err)
	}
	var pulses []testPulseSummary
	if err := json.Unmarshal([]byte(out), &pulses); err != nil {
		t.Fatalf("decode pulses: %v", err)
	}
	if len(pulses) != 1 {
		t.Fatalf("expected one pulse, got %+v", pulses)
	}
	tp := pulses[0]
	if tp.Source != "standalone" || tp.Block != 0 || tp.Headstage != 0 || tp.ClampMode != "vc" {
		t.Fatalf("unexpected pulse: %+v", tp)
	}
	if !tp.AccessResistance.Valid || tp.AccessResistance.Float64 != 9e6 {
		t.Fatalf("unexpected access resistance: %+v", tp.AccessResistance)
	}
}

func TestCLIExport(t *testing.T) {
	env := setupCLITestEnv(t)
	env.withSampleArchive(t, "rig1")

	out, _, err := runCLI(t, []string{"export", "rig1.nwbdb"}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	target := filepath.Join(env.cfg.Export.Dir, "rig1.xlsx")
	requireContains(t, out, target)

	wb, err := excelize.OpenFile(target)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()
	sheets := wb.GetSheetList()
	if len(sheets) != 4 || sheets[0] != export.SheetMetadata {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
	rows, err := wb.GetRows(export.SheetNotebook)
	if err != nil {
		t.Fatalf("read notebook sheet: %v", err)
	}
	// header, three recorded channels, two global rows
	if len(rows) != 6 {
		t.Fatalf("expected 6 notebook rows, got %d", len(rows))
	}

	out, _, err = runCLI(t, []string{"export", "rig1.nwbdb", "--json", "--include-global=false"}, env.configPath)
	if err != nil {
		t.Fatalf("export --json: %v", err)
	}
	var report export.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Notebook) != 3 || len(report.Recordings) != 3 || len(report.TestPulses) != 2 {
		t.Fatalf("unexpected report sizes: %d notebook, %d recordings, %d pulses",
			len(report.Notebook), len(report.Recordings), len(report.TestPulses))
	}
	if report.SessionID == "" {
		t.Fatal("expected session id")
	}
}

func TestCLIScan(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMetricsTextfile("metrics/miesnwb.prom"))
	env.withSampleArchive(t, "rig1")
	env.withSampleArchive(t, "rig2")
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.ArchiveDir, "broken.nwbdb"), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write junk archive: %v", err)
	}

	out, _, err := runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "rig1.nwbdb")
	requireContains(t, out, "rig2.nwbdb")
	requireContains(t, out, "2 summarized, 0 unchanged, 0 removed")
	requireContains(t, out, "broken.nwbdb")
	requireContains(t, out, "[ERROR]")

	data, err := os.ReadFile(env.cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	requireContains(t, string(data), `miesnwb_scan_archives{result="failed"} 1`)
	requireContains(t, string(data), `miesnwb_archive_sweeps{archive="rig1.nwbdb"} 2`)

	out, _, err = runCLI(t, []string{"scan", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("scan --json: %v", err)
	}
	var report struct {
		Summarized int `json:"summarized"`
		Unchanged  int `json:"unchanged"`
		Failed     []struct {
			Path  string `json:"path"`
			Error string `json:"error"`
		} `json:"failed"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode scan report: %v", err)
	}
	if report.Summarized != 0 || report.Unchanged != 2 || len(report.Failed) != 1 || report.Failed[0].Error == "" {
		t.Fatalf("unexpected scan report: %+v", report)
	}

	out, _, err = runCLI(t, []string{"scan", "--rescan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan --rescan: %v", err)
	}
	requireContains(t, out, "2 summarized, 0 unchanged")
}

func TestConfigInitShowAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.cfg.Paths.ArchiveDir)
	requireContains(t, out, ".nwbdb")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}
