package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"miesnwb/internal/archiveindex"
	"miesnwb/internal/metrics"
)

func sampleReport() archiveindex.Report {
	return archiveindex.Report{
		Dir:        "/data/archives",
		Summarized: 1,
		Unchanged:  2,
		Removed:    1,
		Failed:     []archiveindex.ScanError{{Path: "/data/archives/bad.nwbdb"}},
		Started:    time.Unix(1700000000, 0),
		Elapsed:    1500 * time.Millisecond,
		Entries: []archiveindex.Entry{
			{
				Path:        "/data/archives/rig1/cell01.nwbdb",
				Sweeps:      12,
				TestPulses:  3,
				Failures:    1,
				Samples:     4800,
				ClampModes:  map[string]int{"vc": 10, "ic": 2},
				LastSweepAt: time.Unix(1690000000, 0),
			},
		},
	}
}

func readTextfile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	return string(data)
}

func TestWriteTextfile(t *testing.T) {
	rec := metrics.NewRecorder()
	rec.Observe(sampleReport())

	path := filepath.Join(t.TempDir(), "textfile", "miesnwb.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	content := readTextfile(t, path)
	for _, want := range []string{
		`miesnwb_scan_archives{result="summarized"} 1`,
		`miesnwb_scan_archives{result="unchanged"} 2`,
		`miesnwb_scan_archives{result="failed"} 1`,
		`miesnwb_scan_archives{result="removed"} 1`,
		`miesnwb_scan_duration_seconds 1.5`,
		`miesnwb_scan_last_run_timestamp_seconds 1.7e+09`,
		`miesnwb_archive_sweeps{archive="rig1/cell01.nwbdb"} 12`,
		`miesnwb_archive_recordings{archive="rig1/cell01.nwbdb",clamp_mode="ic"} 2`,
		`miesnwb_archive_recordings{archive="rig1/cell01.nwbdb",clamp_mode="vc"} 10`,
		`miesnwb_archive_recording_failures{archive="rig1/cell01.nwbdb"} 1`,
		`miesnwb_archive_test_pulses{archive="rig1/cell01.nwbdb"} 3`,
		`miesnwb_archive_samples{archive="rig1/cell01.nwbdb"} 4800`,
		`miesnwb_archive_last_sweep_timestamp_seconds{archive="rig1/cell01.nwbdb"} 1.69e+09`,
		"# HELP miesnwb_archive_sweeps Sweeps with acquisition data.",
		"# TYPE miesnwb_archive_sweeps gauge",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in textfile:\n%s", want, content)
		}
	}
}

func TestObserveReplacesPreviousArchives(t *testing.T) {
	rec := metrics.NewRecorder()
	rec.Observe(sampleReport())
	rec.Observe(archiveindex.Report{Dir: "/data/archives"})

	path := filepath.Join(t.TempDir(), "miesnwb.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	content := readTextfile(t, path)
	if strings.Contains(content, "cell01") {
		t.Fatalf("stale archive series left in textfile:\n%s", content)
	}
	if !strings.Contains(content, `miesnwb_scan_archives{result="summarized"} 0`) {
		t.Fatalf("expected zeroed scan counts:\n%s", content)
	}
}

func TestWriteTextfileRequiresPath(t *testing.T) {
	if err := metrics.NewRecorder().WriteTextfile(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
