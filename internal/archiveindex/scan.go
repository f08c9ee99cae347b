package archiveindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"miesnwb/internal/logging"
)

// ScanError records an archive that could not be summarized.
type ScanError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (e ScanError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e ScanError) Unwrap() error { return e.Err }

// MarshalJSON includes the error message alongside the path.
func (e ScanError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{e.Path, e.Err.Error()})
}

// Report describes one scan.
type Report struct {
	Dir        string        `json:"dir"`
	Summarized int           `json:"summarized"`
	Unchanged  int           `json:"unchanged"`
	Removed    int           `json:"removed"`
	Failed     []ScanError   `json:"failed,omitempty"`
	Entries    []Entry       `json:"entries"`
	Started    time.Time     `json:"started"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Scanner walks a directory for archives and keeps an Index current.
type Scanner struct {
	index    *Index
	suffix   string
	required []string
	base     *slog.Logger
	logger   *slog.Logger
}

// NewScanner returns a scanner that treats files ending in suffix as
// archives. required lists extra notebook fields every archive must carry.
func NewScanner(index *Index, suffix string, logger *slog.Logger, required ...string) *Scanner {
	return &Scanner{
		index:    index,
		suffix:   suffix,
		required: required,
		base:     logger,
		logger:   logging.NewComponentLogger(logger, "archiveindex"),
	}
}

// Scan summarizes every changed archive below dir, drops index entries for
// archives under dir that no longer exist, and returns the current entries
// for dir. Per-archive failures are reported, not returned.
func (s *Scanner) Scan(ctx context.Context, dir string) (Report, error) {
	report := Report{Dir: filepath.Clean(dir), Started: time.Now()}

	info, err := os.Stat(report.Dir)
	if err != nil {
		return report, fmt.Errorf("scan directory: %w", err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("scan directory: %s is not a directory", report.Dir)
	}

	seen := make(map[string]struct{})
	err = filepath.WalkDir(report.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), s.suffix) {
			return nil
		}
		seen[path] = struct{}{}
		s.visit(ctx, path, d, &report)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walk %s: %w", report.Dir, err)
	}

	for _, entry := range s.index.List() {
		if _, ok := seen[entry.Path]; ok || !within(report.Dir, entry.Path) {
			continue
		}
		if err := s.index.Remove(entry.Path); err != nil {
			return report, err
		}
		report.Removed++
	}

	for _, entry := range s.index.List() {
		if _, ok := seen[entry.Path]; ok {
			report.Entries = append(report.Entries, entry)
		}
	}
	report.Elapsed = time.Since(report.Started)

	s.logger.Info("archive scan complete",
		logging.String("dir", report.Dir),
		logging.Int("summarized", report.Summarized),
		logging.Int("unchanged", report.Unchanged),
		logging.Int("removed", report.Removed),
		logging.Int("failed", len(report.Failed)),
		logging.Duration("elapsed", report.Elapsed))
	return report, nil
}

func (s *Scanner) visit(ctx context.Context, path string, d fs.DirEntry, report *Report) {
	info, err := d.Info()
	if err != nil {
		report.Failed = append(report.Failed, ScanError{Path: path, Err: err})
		return
	}
	if entry, ok := s.index.Lookup(path); ok && entry.Current(info) {
		report.Unchanged++
		return
	}

	entry, err := Summarize(ctx, path, s.base, s.required...)
	if err == nil {
		err = s.index.Store(entry)
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "archive not summarized", "archive_summary_failed",
			logging.Archive(path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, errorHint(err)),
			logging.String(logging.FieldImpact, "archive left out of the index"))
		report.Failed = append(report.Failed, ScanError{Path: path, Err: err})
		return
	}
	report.Summarized++
}

func errorHint(err error) string {
	var kinded interface{ ErrorKind() string }
	if errors.As(err, &kinded) {
		switch kinded.ErrorKind() {
		case "validation":
			return "check the notebook fields required in config"
		case "not_found":
			return "archive is incomplete; re-import it from its dump"
		}
	}
	return "run `miesnwb sweeps` on the archive for details"
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
