package archiveindex_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"miesnwb/internal/archiveindex"
	"miesnwb/internal/notebook"
	"miesnwb/internal/store"
	ts "miesnwb/internal/testsupport"
)

func TestSummarizeArchive(t *testing.T) {
	cfg := ts.NewConfig(t)
	path := ts.SampleSession().MustImportArchive(t, cfg, "cell01")

	entry, err := archiveindex.Summarize(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if entry.Source != "cell01.json" {
		t.Errorf("unexpected source %q", entry.Source)
	}
	if entry.NotebookRows != 4 || entry.Sweeps != 2 || entry.Recordings != 3 || entry.TestPulses != 1 {
		t.Errorf("unexpected counts: %+v", entry)
	}
	if entry.Samples != 24 {
		t.Errorf("expected 24 samples, got %d", entry.Samples)
	}
	if entry.Failures != 0 || entry.SkippedRows != 0 {
		t.Errorf("unexpected failures/skipped: %d/%d", entry.Failures, entry.SkippedRows)
	}
	if !reflect.DeepEqual(entry.Headstages, []int{0, 1}) {
		t.Errorf("unexpected headstages %v", entry.Headstages)
	}
	if entry.ClampModes["vc"] != 2 || entry.ClampModes["ic"] != 1 {
		t.Errorf("unexpected clamp modes %v", entry.ClampModes)
	}
	if !entry.FirstSweepAt.Equal(ts.SessionStart) || !entry.LastSweepAt.After(entry.FirstSweepAt) {
		t.Errorf("unexpected sweep times %v..%v", entry.FirstSweepAt, entry.LastSweepAt)
	}
}

func TestSummarizeReleasesArchiveOnError(t *testing.T) {
	cfg := ts.NewConfig(t)
	path := ts.SampleSession().MustImportArchive(t, cfg, "cell01")
	if err := ts.ExecSQL(t, path, "DROP TABLE archive_meta"); err != nil {
		t.Fatalf("drop archive_meta: %v", err)
	}

	ctx := context.Background()
	if _, err := archiveindex.Summarize(ctx, path, nil); err == nil {
		t.Fatal("expected Summarize to fail without archive metadata")
	}
	archive, err := store.OpenArchive(ctx, path)
	if err != nil {
		t.Fatalf("archive still locked after failed summary: %v", err)
	}
	_ = archive.Close()
}

func TestSummarizeRequiredFieldMissing(t *testing.T) {
	cfg := ts.NewConfig(t)
	path := ts.SampleSession().MustImportArchive(t, cfg, "cell01")

	_, err := archiveindex.Summarize(context.Background(), path, nil, "Headstage Active")
	var schemaErr *notebook.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestScanTracksChanges(t *testing.T) {
	ctx := context.Background()
	cfg := ts.NewConfig(t)
	path := ts.SampleSession().MustImportArchive(t, cfg, "cell01")
	junk := filepath.Join(cfg.Paths.ArchiveDir, "junk"+cfg.Archive.Suffix)
	if err := os.WriteFile(junk, []byte("not an archive"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.ArchiveDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	idx := archiveindex.NewIndex(cfg.Paths.IndexPath, nil)
	scanner := archiveindex.NewScanner(idx, cfg.Archive.Suffix, nil)

	report, err := scanner.Scan(ctx, cfg.Paths.ArchiveDir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.Summarized != 1 || report.Unchanged != 0 || len(report.Failed) != 1 {
		t.Fatalf("unexpected first report: %+v", report)
	}
	if report.Failed[0].Path != junk {
		t.Fatalf("expected junk archive to fail, got %s", report.Failed[0].Path)
	}
	if len(report.Entries) != 1 || report.Entries[0].Path != path {
		t.Fatalf("unexpected entries: %+v", report.Entries)
	}

	report, err = archiveindex.NewScanner(archiveindex.NewIndex(cfg.Paths.IndexPath, nil), cfg.Archive.Suffix, nil).
		Scan(ctx, cfg.Paths.ArchiveDir)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if report.Summarized != 0 || report.Unchanged != 1 || len(report.Entries) != 1 {
		t.Fatalf("expected archive to be reused from the index: %+v", report)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	report, err = scanner.Scan(ctx, cfg.Paths.ArchiveDir)
	if err != nil {
		t.Fatalf("third Scan: %v", err)
	}
	if report.Removed != 1 || len(report.Entries) != 0 {
		t.Fatalf("expected deleted archive to leave the index: %+v", report)
	}
	if idx.Count() != 0 {
		t.Fatalf("expected empty index, got %d", idx.Count())
	}
}

func TestScanRejectsMissingDirectory(t *testing.T) {
	scanner := archiveindex.NewScanner(archiveindex.NewIndex("", nil), ".nwbdb", nil)
	if _, err := scanner.Scan(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
