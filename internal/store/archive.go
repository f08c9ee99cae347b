package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
	_ "modernc.org/sqlite"

	"miesnwb/internal/logging"
)

// Archive is a recording file stored as a single SQLite database. An open
// Archive holds an exclusive lock on "<path>.lock" until Close.
type Archive struct {
	db       *sql.DB
	path     string
	lock     *flock.Flock
	readOnly bool
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

// ArchiveOption configures OpenArchive and CreateArchive.
type ArchiveOption func(*Archive)

// WithArchiveLogger sets the logger for archive lifecycle events.
func WithArchiveLogger(logger *slog.Logger) ArchiveOption {
	return func(a *Archive) {
		a.logger = logger
	}
}

// OpenArchive opens an existing archive read-only.
func OpenArchive(ctx context.Context, path string, opts ...ArchiveOption) (*Archive, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("open archive: path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound("archive", path)
		}
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open archive: %s is a directory", path)
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return nil, fmt.Errorf("open archive: %s is not readable: %w", path, err)
	}

	a := newArchive(path, true, opts)
	if err := a.acquire(); err != nil {
		return nil, err
	}
	if err := a.connect(ctx, "PRAGMA busy_timeout = 5000", "PRAGMA query_only = ON"); err != nil {
		a.release()
		return nil, err
	}
	if err := a.checkSchema(ctx); err != nil {
		a.release()
		return nil, err
	}
	a.logger.Debug("archive opened", logging.Archive(path))
	return a, nil
}

// CreateArchive creates a new, empty archive for writing. An existing file at
// path is an error.
func CreateArchive(ctx context.Context, path string, opts ...ArchiveOption) (*Archive, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("create archive: path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create archive: %s: %w", path, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	a := newArchive(path, false, opts)
	if err := a.acquire(); err != nil {
		return nil, err
	}
	if err := a.connect(ctx, "PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"); err != nil {
		a.release()
		return nil, err
	}
	if err := a.createSchema(ctx); err != nil {
		a.release()
		_ = os.Remove(path)
		return nil, err
	}
	a.logger.Debug("archive created", logging.Archive(path))
	return a, nil
}

func newArchive(path string, readOnly bool, opts []ArchiveOption) *Archive {
	a := &Archive{path: path, readOnly: readOnly}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "store")
	return a
}

func (a *Archive) acquire() error {
	a.lock = flock.New(a.path + ".lock")
	ok, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire archive lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, a.path)
	}
	return nil
}

func (a *Archive) connect(ctx context.Context, pragmas ...string) error {
	db, err := sql.Open("sqlite", a.path)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	// query_only is a per-connection setting
	db.SetMaxOpenConns(1)
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	a.db = db
	return nil
}

func (a *Archive) release() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			a.logger.Warn("failed to release archive lock",
				logging.String(logging.FieldEventType, "archive_unlock_failed"),
				logging.Archive(a.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the .lock file if no other process uses the archive"),
				logging.String(logging.FieldImpact, "later opens may report the archive as locked"))
		}
	}
}

// Path returns the archive's file path.
func (a *Archive) Path() string { return a.path }

// ReadOnly reports whether the archive was opened with OpenArchive.
func (a *Archive) ReadOnly() bool { return a.readOnly }

// Close releases the database handle and the lock. Closing twice is allowed.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db = nil
	}
	if a.lock != nil {
		if unlockErr := a.lock.Unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("release archive lock: %w", unlockErr)
		}
	}
	a.logger.Debug("archive closed", logging.Archive(a.path))
	return err
}

func (a *Archive) handle() (*sql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.db == nil {
		return nil, ErrClosed
	}
	return a.db, nil
}

func (a *Archive) writable() (*sql.DB, error) {
	db, err := a.handle()
	if err != nil {
		return nil, err
	}
	if a.readOnly {
		return nil, fmt.Errorf("archive %s is open read-only", a.path)
	}
	return db, nil
}
