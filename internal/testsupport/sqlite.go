package testsupport

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// ExecSQL runs a statement directly against an archive file, bypassing the
// store's lock, so tests can corrupt archives on purpose.
func ExecSQL(t testing.TB, path, stmt string, args ...any) error {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(stmt, args...)
	return err
}
